// Package interceptors contains ready-made outbound interceptors for the eventpublisher pipeline.
//
// Every exported function returns or is an eventpublisher.InterceptorConstructor, so it can be passed
// directly to eventpublisher.WithInterceptors:
//
//	eventpublisher.WithInterceptors(
//		interceptors.NewCorrelationHeaders,
//		interceptors.StaticHeaders(map[string]string{"producer": "billing"}),
//		interceptors.Timing(metrics),
//		interceptors.Logging(logger),
//	)
package interceptors
