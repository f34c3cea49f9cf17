package orderlist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
)

const defaultIdleTTL = 30 * time.Minute

// Session bundles the per-session controller with its poller and toast queue.
type Session struct {
	ID         string
	Controller *Controller
	Poller     *Poller
	Toasts     *notifications.Queue

	lastSeen time.Time
}

// Factory builds the controller for a new session. The queue must be wired as its notifier.
type Factory func(toasts *notifications.Queue) *Controller

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an unused session is kept.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithPollInterval enables background polling for every session.
func WithPollInterval(interval time.Duration) RegistryOption {
	return func(r *Registry) {
		r.pollInterval = interval
	}
}

// WithBaseContext sets the parent context of background polls.
func WithBaseContext(ctx context.Context) RegistryOption {
	return func(r *Registry) {
		if ctx != nil {
			r.base = ctx
		}
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry keeps one order list session per browser session.
type Registry struct {
	factory      Factory
	ttl          time.Duration
	pollInterval time.Duration
	base         context.Context
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:  factory,
		ttl:      defaultIdleTTL,
		base:     context.Background(),
		logger:   zap.NewNop(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s
	}
	toasts := notifications.NewQueue(0)
	controller := r.factory(toasts)
	s := &Session{
		ID:         id,
		Controller: controller,
		Toasts:     toasts,
		lastSeen:   r.now(),
	}
	if r.pollInterval > 0 {
		s.Poller = NewPoller(r.pollInterval, controller.Poll, r.logger.With(zap.String("session_id", id)))
		s.Poller.Start(r.base)
	}
	r.sessions[id] = s
	r.logger.Debug("order list session created", zap.String("session_id", id))
	return s
}

// Remove stops and forgets the session for id. It reports whether a session existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		stopSession(s)
	}
	return ok
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		stopSession(s)
	}
	if len(expired) > 0 {
		r.logger.Info("evicted idle order list sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(max(r.ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		stopSession(s)
	}
}

func stopSession(s *Session) {
	if s.Poller != nil {
		s.Poller.Stop()
	}
	s.Controller.Close()
}
