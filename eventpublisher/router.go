package eventpublisher

import (
	"errors"
	"strings"
	"unicode"
)

// DestinationKind distinguishes the two kinds of broker destinations.
type DestinationKind int

const (
	// DestinationTopic is a publish/subscribe destination, used for events.
	DestinationTopic DestinationKind = iota

	// DestinationQueue is a point-to-point destination, used for commands and requests.
	DestinationQueue
)

// String provides a string representation of DestinationKind for logging and debugging.
func (k DestinationKind) String() string {
	switch k {
	case DestinationTopic:
		return "topic"
	case DestinationQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// Router maps an event type to the name of its destination.
// Implementations must be pure: the same input always yields the same destination.
type Router interface {
	Route(eventType string, kind DestinationKind) (string, error)
}

// NamingConvention derives a destination name from an event type.
type NamingConvention func(eventType string) string

// TableRouter resolves destinations from explicit routing tables and falls back to a NamingConvention.
// It is configured once and safe for concurrent use.
type TableRouter struct {
	topics     map[string]string
	queues     map[string]string
	convention NamingConvention
	prefix     string
}

// TableRouterOption configures a TableRouter.
type TableRouterOption func(*TableRouter)

// WithTopicRoute maps an event type to an explicit topic name.
func WithTopicRoute(eventType, topic string) TableRouterOption {
	return func(r *TableRouter) {
		r.topics[eventType] = topic
	}
}

// WithQueueRoute maps an event type to an explicit queue name.
func WithQueueRoute(eventType, queue string) TableRouterOption {
	return func(r *TableRouter) {
		r.queues[eventType] = queue
	}
}

// WithNamingConvention sets the fallback used for event types without an explicit route.
// A nil convention disables the fallback, so unrouted event types fail with ErrNoRouteFound.
func WithNamingConvention(convention NamingConvention) TableRouterOption {
	return func(r *TableRouter) {
		r.convention = convention
	}
}

// WithDestinationPrefix prepends a prefix to every destination derived by the naming convention.
// Explicit routes are used verbatim.
func WithDestinationPrefix(prefix string) TableRouterOption {
	return func(r *TableRouter) {
		r.prefix = prefix
	}
}

// NewTableRouter creates a TableRouter that uses DottedLowerCase as the fallback naming convention.
func NewTableRouter(options ...TableRouterOption) TableRouter {
	r := TableRouter{
		topics:     make(map[string]string),
		queues:     make(map[string]string),
		convention: DottedLowerCase,
	}

	for _, option := range options {
		option(&r)
	}

	return r
}

// Route resolves the destination for the event type and destination kind.
func (r TableRouter) Route(eventType string, kind DestinationKind) (string, error) {
	if eventType == "" {
		return "", ErrEmptyEventType
	}

	table := r.topics
	if kind == DestinationQueue {
		table = r.queues
	}

	if destination, ok := table[eventType]; ok {
		return destination, nil
	}

	if r.convention == nil {
		return "", errors.Join(ErrNoRouteFound, errors.New(kind.String()+" for "+eventType))
	}

	return r.prefix + r.convention(eventType), nil
}

// DottedLowerCase splits a CamelCase event type into lower-case words joined by dots,
// so "OrderCreated" becomes "order.created" and "HTTPRequestFailed" becomes "http.request.failed".
func DottedLowerCase(eventType string) string {
	runes := []rune(eventType)

	var b strings.Builder
	b.Grow(len(eventType) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
				b.WriteByte('.')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
