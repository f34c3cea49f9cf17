package orderlist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Poller runs a poll function on a fixed interval while the page is visible. Becoming
// visible again polls immediately instead of waiting for the next tick.
type Poller struct {
	interval time.Duration
	poll     func(context.Context) error
	logger   *zap.Logger

	visible atomic.Bool
	wake    chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller constructs a poller. It starts visible.
func NewPoller(interval time.Duration, poll func(context.Context) error, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		interval: interval,
		poll:     poll,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
	p.visible.Store(true)
	return p
}

// Start launches the polling loop. Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.interval <= 0 || p.poll == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop ends the polling loop and waits for an in-flight poll to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetVisible records the page visibility reported by the browser.
func (p *Poller) SetVisible(visible bool) {
	was := p.visible.Swap(visible)
	if visible && !was {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Visible reports the last known page visibility.
func (p *Poller) Visible() bool {
	return p.visible.Load()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.visible.Load() {
				p.run(ctx)
			}
		case <-p.wake:
			p.run(ctx)
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	if err := p.poll(ctx); err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
		p.logger.Warn("order poll failed", zap.Error(err))
	}
}
