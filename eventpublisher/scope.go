package eventpublisher

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Scope is the resolution context of one Publish call.
//
// Interceptor instances and their resources are bound to it and released when it closes.
// Close must be idempotent.
type Scope interface {
	// ID identifies the scope, e.g., for log correlation.
	ID() string

	// Resolve returns the instance registered under key within this scope, building it on first use.
	Resolve(key string, build func() (any, error)) (any, error)

	// OnClose registers a release function that runs when the scope closes.
	OnClose(release func() error)

	// Close runs all release functions in reverse registration order.
	Close() error
}

// ScopeManager opens one Scope per Publish call.
type ScopeManager interface {
	OpenScope(ctx context.Context) (Scope, error)
}

// ChildScopeManager opens ChildScope instances, optionally backed by a parent resolver for long-lived services.
type ChildScopeManager struct {
	parent func(key string) (any, bool)
}

// ChildScopeManagerOption configures a ChildScopeManager.
type ChildScopeManagerOption func(*ChildScopeManager)

// WithParentResolver lets child scopes fall back to long-lived instances resolved by the parent.
func WithParentResolver(parent func(key string) (any, bool)) ChildScopeManagerOption {
	return func(m *ChildScopeManager) {
		m.parent = parent
	}
}

// NewChildScopeManager creates a ChildScopeManager.
func NewChildScopeManager(options ...ChildScopeManagerOption) ChildScopeManager {
	m := ChildScopeManager{}
	for _, option := range options {
		option(&m)
	}

	return m
}

// OpenScope opens a new, empty ChildScope.
func (m ChildScopeManager) OpenScope(ctx context.Context) (Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	return &ChildScope{
		id:        id.String(),
		instances: make(map[string]any),
		parent:    m.parent,
	}, nil
}

// ChildScope is the default Scope implementation.
type ChildScope struct {
	id        string
	instances map[string]any
	releases  []func() error
	parent    func(key string) (any, bool)
	closed    bool
	mu        sync.Mutex
}

// ID returns the scope's random ID.
func (s *ChildScope) ID() string {
	return s.id
}

// Resolve returns the scoped instance for key.
// Lookup order: instances already built in this scope, the parent resolver, then build.
// build runs without holding the scope's lock, so it may resolve other keys or register releases.
// If two builds for the same key race, the first stored instance wins.
func (s *ChildScope) Resolve(key string, build func() (any, error)) (any, error) {
	if instance, ok, err := s.lookup(key); ok || err != nil {
		return instance, err
	}

	if build == nil {
		return nil, errors.Join(ErrNilCollaborator, errors.New("no builder for scoped key "+key))
	}

	instance, err := build()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScopeClosed
	}

	if existing, ok := s.instances[key]; ok {
		return existing, nil
	}

	s.instances[key] = instance

	return instance, nil
}

func (s *ChildScope) lookup(key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrScopeClosed
	}

	if instance, ok := s.instances[key]; ok {
		return instance, true, nil
	}

	if s.parent != nil {
		if instance, ok := s.parent(key); ok {
			return instance, true, nil
		}
	}

	return nil, false, nil
}

// OnClose registers a release function. On a closed scope it runs immediately.
func (s *ChildScope) OnClose(release func() error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		_ = release()

		return
	}

	s.releases = append(s.releases, release)
	s.mu.Unlock()
}

// Close runs all release functions in reverse registration order and joins their errors.
// Calling it more than once is a no-op.
func (s *ChildScope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	releases := s.releases
	s.releases = nil
	s.instances = nil
	s.mu.Unlock()

	var errs []error
	for _, release := range slices.Backward(releases) {
		if err := release(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// IsClosed reports whether Close was called.
func (s *ChildScope) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
