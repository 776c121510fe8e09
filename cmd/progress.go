package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const progressInterval = 200 * time.Millisecond

var progressFrames = []string{"|", "/", "-", "\\"}

// progressPrinter draws a single-line spinner while a submission is in
// flight. Stop must be called exactly once per Start.
type progressPrinter struct {
	out      io.Writer
	label    string
	interval time.Duration

	mu      sync.Mutex
	frame   int
	started time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, label string) *progressPrinter {
	return &progressPrinter{
		out:      out,
		label:    label,
		interval: progressInterval,
		done:     make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	p.print()
	p.wg.Add(1)
	go p.loop()
}

// Stop halts the spinner and erases its line. It returns the elapsed time.
func (p *progressPrinter) Stop() time.Duration {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", len(p.line())))
	return time.Since(p.started)
}

func (p *progressPrinter) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			p.frame = (p.frame + 1) % len(progressFrames)
			p.mu.Unlock()
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s", p.line())
}

func (p *progressPrinter) line() string {
	elapsed := time.Since(p.started).Truncate(time.Second)
	return fmt.Sprintf("%s %s... %s", progressFrames[p.frame], p.label, elapsed)
}
