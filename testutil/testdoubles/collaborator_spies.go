package testdoubles

import (
	"context"
	"errors"
	"sync"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

// RouterSpy delegates to an eventpublisher.Router and counts the calls.
type RouterSpy struct {
	router eventpublisher.Router
	calls  int
	mu     sync.Mutex
}

// NewRouterSpy creates a RouterSpy around router.
func NewRouterSpy(router eventpublisher.Router) *RouterSpy {
	return &RouterSpy{router: router}
}

// Route implements eventpublisher.Router.
func (r *RouterSpy) Route(eventType string, kind eventpublisher.DestinationKind) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	return r.router.Route(eventType, kind)
}

// CallCount returns the number of Route calls.
func (r *RouterSpy) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

// ScopeManagerSpy opens real ChildScopes and keeps them for inspection.
type ScopeManagerSpy struct {
	delegate eventpublisher.ChildScopeManager
	scopes   []*eventpublisher.ChildScope
	err      error
	closeErr error
	mu       sync.Mutex
}

// NewScopeManagerSpy creates a ScopeManagerSpy.
func NewScopeManagerSpy() *ScopeManagerSpy {
	return &ScopeManagerSpy{delegate: eventpublisher.NewChildScopeManager()}
}

// FailingWith makes OpenScope return err.
func (m *ScopeManagerSpy) FailingWith(err error) *ScopeManagerSpy {
	m.err = err
	return m
}

// FailingCloseWith registers a release function on each opened scope that fails with err.
func (m *ScopeManagerSpy) FailingCloseWith(err error) *ScopeManagerSpy {
	m.closeErr = err
	return m
}

// OpenScope implements eventpublisher.ScopeManager.
func (m *ScopeManagerSpy) OpenScope(ctx context.Context) (eventpublisher.Scope, error) {
	if m.err != nil {
		return nil, m.err
	}

	scope, err := m.delegate.OpenScope(ctx)
	if err != nil {
		return nil, err
	}

	childScope, ok := scope.(*eventpublisher.ChildScope)
	if !ok {
		return nil, errors.New("unexpected scope type")
	}

	if m.closeErr != nil {
		closeErr := m.closeErr
		childScope.OnClose(func() error { return closeErr })
	}

	m.mu.Lock()
	m.scopes = append(m.scopes, childScope)
	m.mu.Unlock()

	return childScope, nil
}

// Scopes returns all opened scopes.
func (m *ScopeManagerSpy) Scopes() []*eventpublisher.ChildScope {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*eventpublisher.ChildScope(nil), m.scopes...)
}

// OpenCount returns the number of opened scopes.
func (m *ScopeManagerSpy) OpenCount() int {
	return len(m.Scopes())
}

// AllClosed reports whether every opened scope was closed.
func (m *ScopeManagerSpy) AllClosed() bool {
	for _, scope := range m.Scopes() {
		if !scope.IsClosed() {
			return false
		}
	}

	return true
}

// EnvelopeFactoryStub always fails with its configured error.
type EnvelopeFactoryStub struct {
	Err error
}

// Create implements eventpublisher.EnvelopeFactory.
func (f EnvelopeFactoryStub) Create(context.Context, eventpublisher.Event) (*eventpublisher.Envelope, error) {
	return nil, f.Err
}
