package interceptors

import (
	"context"
	"maps"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

// HeaderScopeID carries the ID of the publish scope that sent the envelope.
const HeaderScopeID = "publish-scope-id"

// StaticHeaders returns a constructor for an interceptor that sets fixed headers on every envelope.
// Existing headers with the same key are overwritten.
func StaticHeaders(headers map[string]string) eventpublisher.InterceptorConstructor {
	fixed := maps.Clone(headers)

	return eventpublisher.Shared(eventpublisher.InterceptorFuncs{
		BeforeSendFunc: func(_ context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
			for key, value := range fixed {
				envelope.SetHeader(key, value)
			}

			return nil
		},
	})
}

// CorrelationHeaders enforces the correlation chain of the context on the envelope,
// for envelope factories that do not read it, and tags the envelope with the publish scope ID.
type CorrelationHeaders struct {
	scopeID string
}

// NewCorrelationHeaders is an eventpublisher.InterceptorConstructor.
func NewCorrelationHeaders(scope eventpublisher.Scope) (eventpublisher.Interceptor, error) {
	return &CorrelationHeaders{scopeID: scope.ID()}, nil
}

func (i *CorrelationHeaders) BeforeSend(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
	if correlationID := eventpublisher.GetCorrelationID(ctx); correlationID != "" {
		envelope.CorrelationID = correlationID
	}

	if causationID := eventpublisher.GetCausationID(ctx); causationID != "" {
		envelope.CausationID = causationID
	}

	envelope.SetHeader(HeaderScopeID, i.scopeID)

	return nil
}

func (i *CorrelationHeaders) AfterSend(context.Context, eventpublisher.Event, *eventpublisher.Envelope) error {
	return nil
}

func (i *CorrelationHeaders) OnError(context.Context, eventpublisher.Event, *eventpublisher.Envelope, error) error {
	return nil
}
