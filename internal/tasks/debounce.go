package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DebounceState is the state of a [Debouncer].
type DebounceState int

const (
	Idle DebounceState = iota
	Pending
	Running
)

func (s DebounceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Running:
		return "running"
	default:
		return ""
	}
}

// Debouncer runs fn once triggers have been quiet for delay.
//
// [Debouncer.Run] owns the timer and must be running for triggers to take effect.
type Debouncer struct {
	delay  time.Duration
	fn     func(ctx context.Context) error
	logger *log.Logger

	trigger chan struct{}
	flush   chan chan struct{}

	mu    sync.Mutex
	state DebounceState
	runs  int
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(delay time.Duration, fn func(ctx context.Context) error, logger *log.Logger) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fn:      fn,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
	}
}

// Trigger schedules a run, restarting the quiet period if one is already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	if d.state == Idle {
		d.state = Pending
	}
	d.mu.Unlock()

	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// State reports the current state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Runs reports how many times fn has completed.
func (d *Debouncer) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

// Flush runs a pending call immediately and waits for it. It returns at once when nothing is pending.
func (d *Debouncer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case d.flush <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes triggers until ctx is cancelled. Errors from fn are logged, not returned.
func (d *Debouncer) Run(ctx context.Context) {
	timer := time.NewTimer(d.delay)
	timer.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-d.trigger:
			timer.Reset(d.delay)
			armed = true
			d.setState(Pending)
		case <-timer.C:
			armed = false
			d.execute(ctx)
		case ack := <-d.flush:
			select {
			case <-d.trigger:
				armed = true
			default:
			}
			if armed {
				timer.Stop()
				armed = false
				d.execute(ctx)
			}
			close(ack)
		}
	}
}

func (d *Debouncer) execute(ctx context.Context) {
	d.setState(Running)
	if err := d.fn(ctx); err != nil {
		d.logger.Error("debounced task failed", "err", err)
	}

	d.mu.Lock()
	d.runs++
	d.state = Idle
	d.mu.Unlock()

	select {
	case <-d.trigger:
		// triggered while running
		d.Trigger()
	default:
	}
}

func (d *Debouncer) setState(s DebounceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}
