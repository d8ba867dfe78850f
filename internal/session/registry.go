package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

// Counter is told the number of live sessions whenever it changes.
type Counter interface {
	Sessions(n int)
}

// Registry owns the live sessions.
type Registry struct {
	factory Factory
	counter Counter

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry creates an empty registry. counter may be nil.
func NewRegistry(factory Factory, counter Counter) *Registry {
	return &Registry{
		factory:  factory,
		counter:  counter,
		sessions: make(map[string]Session),
	}
}

// Create makes a new session with a fresh id.
func (r *Registry) Create(ctx context.Context) (Session, error) {
	id := uuid.NewString()
	s, err := r.factory.NewSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.count(n)
	ctxlog.FromContext(ctx).Info("Session created.", "session", id, "live", n)
	return s, nil
}

func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.count(n)
	ctxlog.FromContext(ctx).Info("Session deleted.", "session", id, "live", n)
	return s.Close(ctx)
}

// Each calls fn for every live session.
func (r *Registry) Each(fn func(Session)) {
	r.mu.RLock()
	list := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	for _, s := range list {
		fn(s)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session and empties the registry.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	list := r.sessions
	r.sessions = make(map[string]Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range list {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.count(0)
	return errors.Join(errs...)
}

func (r *Registry) count(n int) {
	if r.counter != nil {
		r.counter.Sessions(n)
	}
}
