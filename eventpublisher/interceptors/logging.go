package interceptors

import (
	"context"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const (
	logMsgBeforeSend = "interceptor: sending envelope"
	logMsgAfterSend  = "interceptor: envelope sent"
	logMsgOnError    = "interceptor error: envelope not sent"

	logAttrMessageID     = "message_id"
	logAttrEventType     = "event_type"
	logAttrCorrelationID = "correlation_id"
	logAttrError         = "error"
)

// Logging returns a constructor for a stateless interceptor that logs every hook.
// Before and after hooks are logged at Debug, error hooks at Warn.
// A nil logger yields an interceptor that does nothing.
func Logging(logger eventpublisher.Logger) eventpublisher.InterceptorConstructor {
	if logger == nil {
		return eventpublisher.Shared(eventpublisher.InterceptorFuncs{})
	}

	return eventpublisher.Shared(eventpublisher.InterceptorFuncs{
		BeforeSendFunc: func(_ context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
			logger.Debug(logMsgBeforeSend, envelopeArgs(envelope)...)
			return nil
		},
		AfterSendFunc: func(_ context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
			logger.Debug(logMsgAfterSend, envelopeArgs(envelope)...)
			return nil
		},
		OnErrorFunc: func(_ context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope, err error) error {
			logger.Warn(logMsgOnError, append(envelopeArgs(envelope), logAttrError, err.Error())...)
			return nil
		},
	})
}

func envelopeArgs(envelope *eventpublisher.Envelope) []any {
	return []any{
		logAttrMessageID, envelope.MessageID,
		logAttrEventType, envelope.EventType,
		logAttrCorrelationID, envelope.CorrelationID,
	}
}
