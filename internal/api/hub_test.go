package api

import (
	"sync"
	"testing"

	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"go.uber.org/zap/zaptest"
)

func TestSnapshotHub_LatestAndSubscribe(t *testing.T) {
	hub := NewSnapshotHub(zaptest.NewLogger(t))

	if _, ok := hub.Latest(); ok {
		t.Fatal("expected no snapshot before the first publish")
	}

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Publish(workflow.Snapshot{Revision: 1, State: workflow.StateConfiguring, TechStack: []string{"Go"}})

	got := <-ch
	if got.Revision != 1 || got.State != "configuring" {
		t.Fatalf("unexpected view: %+v", got)
	}
	latest, ok := hub.Latest()
	if !ok || latest.Revision != 1 {
		t.Fatalf("expected latest revision 1, got %+v", latest)
	}
}

func TestSnapshotHub_IgnoresStaleRevisions(t *testing.T) {
	hub := NewSnapshotHub(nil)
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Publish(workflow.Snapshot{Revision: 5})
	hub.Publish(workflow.Snapshot{Revision: 3})

	<-ch
	select {
	case v := <-ch:
		t.Fatalf("stale revision %d should not be delivered", v.Revision)
	default:
	}
	if latest, _ := hub.Latest(); latest.Revision != 5 {
		t.Fatalf("latest revision = %d, want 5", latest.Revision)
	}
}

func TestSnapshotHub_UnsubscribeClosesOnce(t *testing.T) {
	hub := NewSnapshotHub(nil)
	ch, unsubscribe := hub.Subscribe()

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	// publishing after unsubscribe must not panic on the closed channel
	hub.Publish(workflow.Snapshot{Revision: 1})
}

func TestSnapshotHub_DropsForSlowSubscriber(t *testing.T) {
	hub := NewSnapshotHub(zaptest.NewLogger(t))
	_, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 1; i <= subscriberBuffer+3; i++ {
		hub.Publish(workflow.Snapshot{Revision: uint64(i)})
	}
	if got := hub.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
}

func TestSnapshotHub_ConcurrentPublish(t *testing.T) {
	hub := NewSnapshotHub(nil)
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(rev uint64) {
			defer wg.Done()
			hub.Publish(workflow.Snapshot{Revision: rev})
		}(uint64(i))
	}
	wg.Wait()

	latest, _ := hub.Latest()
	if latest.Revision != 50 {
		t.Fatalf("latest revision = %d, want 50", latest.Revision)
	}

	var last uint64
	for {
		select {
		case v := <-ch:
			if v.Revision <= last {
				t.Fatalf("out of order delivery: %d after %d", v.Revision, last)
			}
			last = v.Revision
		default:
			return
		}
	}
}
