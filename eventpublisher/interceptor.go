package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

const (
	hookBeforeSend = "before_send"
	hookAfterSend  = "after_send"
	hookOnError    = "on_error"
)

// Interceptor observes and may mutate an outbound envelope around the send.
//
// For each Publish call the publisher invokes BeforeSend in construction order, then either AfterSend
// in reverse order (success) or OnError in reverse order (failure). A returned error is treated like a
// failed send, except for OnError, where it aborts the error path and is returned to the caller.
//
// OnError runs for every constructed interceptor, even one whose BeforeSend never ran. If an after-hook
// fails, the interceptors whose AfterSend already completed get OnError as well.
type Interceptor interface {
	BeforeSend(ctx context.Context, event Event, envelope *Envelope) error
	AfterSend(ctx context.Context, event Event, envelope *Envelope) error
	OnError(ctx context.Context, event Event, envelope *Envelope, err error) error
}

// InterceptorFuncs adapts plain functions to the Interceptor interface. A nil function is a no-op.
type InterceptorFuncs struct {
	BeforeSendFunc func(ctx context.Context, event Event, envelope *Envelope) error
	AfterSendFunc  func(ctx context.Context, event Event, envelope *Envelope) error
	OnErrorFunc    func(ctx context.Context, event Event, envelope *Envelope, err error) error
}

func (f InterceptorFuncs) BeforeSend(ctx context.Context, event Event, envelope *Envelope) error {
	if f.BeforeSendFunc == nil {
		return nil
	}

	return f.BeforeSendFunc(ctx, event, envelope)
}

func (f InterceptorFuncs) AfterSend(ctx context.Context, event Event, envelope *Envelope) error {
	if f.AfterSendFunc == nil {
		return nil
	}

	return f.AfterSendFunc(ctx, event, envelope)
}

func (f InterceptorFuncs) OnError(ctx context.Context, event Event, envelope *Envelope, err error) error {
	if f.OnErrorFunc == nil {
		return nil
	}

	return f.OnErrorFunc(ctx, event, envelope, err)
}

// InterceptorFactory creates a fresh, ordered list of interceptors for one Publish call.
type InterceptorFactory interface {
	CreateInterceptors(scope Scope) ([]Interceptor, error)
}

// InterceptorConstructor builds one interceptor instance from the call's scope.
type InterceptorConstructor func(scope Scope) (Interceptor, error)

// ConfiguredInterceptorFactory is an InterceptorFactory with a fixed, configuration-defined order.
type ConfiguredInterceptorFactory struct {
	constructors []InterceptorConstructor
}

// NewInterceptorFactory creates a ConfiguredInterceptorFactory.
// The interceptors are constructed, and their before-hooks run, in the given order.
func NewInterceptorFactory(constructors ...InterceptorConstructor) ConfiguredInterceptorFactory {
	return ConfiguredInterceptorFactory{constructors: slices.Clone(constructors)}
}

// CreateInterceptors runs all constructors in order.
// Interceptors implementing io.Closer are released when the scope closes.
func (f ConfiguredInterceptorFactory) CreateInterceptors(scope Scope) ([]Interceptor, error) {
	interceptors := make([]Interceptor, 0, len(f.constructors))

	for i, construct := range f.constructors {
		interceptor, err := construct(scope)
		if err != nil {
			return nil, fmt.Errorf("interceptor constructor %d: %w", i, err)
		}

		if interceptor == nil {
			return nil, fmt.Errorf("interceptor constructor %d: %w", i, ErrNilCollaborator)
		}

		if closer, ok := interceptor.(io.Closer); ok {
			scope.OnClose(closer.Close)
		}

		interceptors = append(interceptors, interceptor)
	}

	return interceptors, nil
}

// Len returns the number of constructors.
func (f ConfiguredInterceptorFactory) Len() int {
	return len(f.constructors)
}

// Shared wraps a long-lived interceptor in a constructor that hands out the same instance to every call.
// Only use it for stateless interceptors.
func Shared(interceptor Interceptor) InterceptorConstructor {
	return func(Scope) (Interceptor, error) {
		return interceptor, nil
	}
}

// InterceptorChain is the ordered interceptor list of one Publish call.
//
// The forward order is the construction order, the reverse order is its exact mirror,
// so the after-hook of interceptor N always runs before the after-hook of interceptor N-1.
type InterceptorChain struct {
	interceptors []Interceptor
}

// NewInterceptorChain creates an InterceptorChain from a copy of the given list.
func NewInterceptorChain(interceptors []Interceptor) InterceptorChain {
	return InterceptorChain{interceptors: slices.Clone(interceptors)}
}

// Len returns the number of interceptors in the chain.
func (c InterceptorChain) Len() int {
	return len(c.interceptors)
}

// Forward iterates the interceptors in construction order.
func (c InterceptorChain) Forward() iter.Seq2[int, Interceptor] {
	return slices.All(c.interceptors)
}

// Reverse iterates the interceptors in reverse construction order.
func (c InterceptorChain) Reverse() iter.Seq2[int, Interceptor] {
	return slices.Backward(c.interceptors)
}

// BeforeSend runs all before-hooks in forward order and stops at the first failure.
func (c InterceptorChain) BeforeSend(ctx context.Context, event Event, envelope *Envelope) error {
	for i, interceptor := range c.Forward() {
		if err := interceptor.BeforeSend(ctx, event, envelope); err != nil {
			return hookError(hookBeforeSend, i, interceptor, err)
		}
	}

	return nil
}

// AfterSend runs all after-hooks in reverse order and stops at the first failure.
func (c InterceptorChain) AfterSend(ctx context.Context, event Event, envelope *Envelope) error {
	for i, interceptor := range c.Reverse() {
		if err := interceptor.AfterSend(ctx, event, envelope); err != nil {
			return hookError(hookAfterSend, i, interceptor, err)
		}
	}

	return nil
}

// OnError runs the error-hooks of all interceptors in reverse order, regardless of how far the
// forward pass got, and stops at the first hook that fails itself.
func (c InterceptorChain) OnError(ctx context.Context, event Event, envelope *Envelope, cause error) error {
	for i, interceptor := range c.Reverse() {
		if err := interceptor.OnError(ctx, event, envelope, cause); err != nil {
			return hookError(hookOnError, i, interceptor, err)
		}
	}

	return nil
}

func hookError(hook string, position int, interceptor Interceptor, err error) error {
	return errors.Join(ErrInterceptorFailed, fmt.Errorf("%s hook of interceptor %d (%T): %w", hook, position, interceptor, err))
}
