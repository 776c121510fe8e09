package api

import (
	"sync"
	"sync/atomic"

	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"go.uber.org/zap"
)

const subscriberBuffer = 10

// SnapshotHub fans workflow snapshots out to stream subscribers.
// It implements workflow.Notifier.
type SnapshotHub struct {
	mu          sync.RWMutex
	latest      *WorkflowView
	subscribers map[chan WorkflowView]struct{}
	dropped     atomic.Uint64
	logger      *zap.Logger
}

var _ workflow.Notifier = (*SnapshotHub)(nil)

func NewSnapshotHub(logger *zap.Logger) *SnapshotHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotHub{
		subscribers: make(map[chan WorkflowView]struct{}),
		logger:      logger,
	}
}

// Publish records the snapshot and offers it to every subscriber. Older
// revisions than the latest seen are ignored.
func (h *SnapshotHub) Publish(s workflow.Snapshot) {
	view := ToWorkflowView(s)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil && view.Revision <= h.latest.Revision {
		return
	}
	h.latest = &view
	h.broadcast(view)
}

// Latest returns the most recent snapshot, if any was published.
func (h *SnapshotHub) Latest() (WorkflowView, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return WorkflowView{}, false
	}
	return *h.latest, true
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (h *SnapshotHub) Subscribe() (chan WorkflowView, func()) {
	ch := make(chan WorkflowView, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

// Dropped reports how many updates were skipped for slow subscribers.
func (h *SnapshotHub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *SnapshotHub) broadcast(view WorkflowView) {
	for ch := range h.subscribers {
		select {
		case ch <- view:
		default:
			// slow consumer; it will catch up on the next revision
			n := h.dropped.Add(1)
			h.logger.Warn("snapshot_dropped",
				zap.Uint64("revision", view.Revision),
				zap.Uint64("dropped_total", n),
			)
		}
	}
}
