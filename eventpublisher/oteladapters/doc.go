// Package oteladapters provides OpenTelemetry adapters for the eventpublisher observability interfaces.
//
// These adapters enable plug-and-play integration with OpenTelemetry for logging, metrics and tracing,
// plus an interceptor that propagates the W3C trace context of the publish span to consumers via
// envelope headers.
package oteladapters
