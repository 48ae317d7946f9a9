package eventpublisher

import (
	"errors"
)

var ErrNilEvent = errors.New("nil event supplied")
var ErrNilCollaborator = errors.New("nil collaborator supplied")
var ErrEmptyEventType = errors.New("empty event type supplied")
var ErrUnknownMessageType = errors.New("unknown message type")
var ErrBuildingEnvelopeFailed = errors.New("building envelope failed")
var ErrRoutingFailed = errors.New("routing failed")
var ErrNoRouteFound = errors.New("no route found")
var ErrOpeningScopeFailed = errors.New("opening scope failed")
var ErrScopeClosed = errors.New("scope is closed")
var ErrCreatingInterceptorsFailed = errors.New("creating interceptors failed")
var ErrResolvingSenderFailed = errors.New("resolving topic sender failed")
var ErrInterceptorFailed = errors.New("interceptor failed")
var ErrSendingFailed = errors.New("sending envelope failed")
var ErrPanicRecovered = errors.New("recovered from panic while publishing")
var ErrErrorHookFailed = errors.New("interceptor error hook failed")

// UnknownMessageTypeError is returned by the KnownTypeGuard for event types that were never registered.
// It matches ErrUnknownMessageType with errors.Is.
type UnknownMessageTypeError struct {
	EventType string
}

func (e *UnknownMessageTypeError) Error() string {
	return ErrUnknownMessageType.Error() + ": " + e.EventType
}

func (e *UnknownMessageTypeError) Is(target error) bool {
	return target == ErrUnknownMessageType
}
