package constant

const (
	// HeaderCorrelationID carries the correlation identifier across service
	// boundaries. It is attached to every outbound call and joins the logs
	// and errors of one logical operation.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderTraceID carries the distributed trace identifier when one is
	// active. Optional; correlation does not depend on tracing.
	HeaderTraceID = "X-Trace-ID"
	// HeaderRequestID is the per-request identifier assigned at ingress.
	HeaderRequestID = "X-Request-Id"
	// HeaderRealIP is the de-facto upstream real client IP header key.
	HeaderRealIP = "X-Real-Ip"
	// HeaderForwardedFor is the X-Forwarded-For header key.
	HeaderForwardedFor = "X-Forwarded-For"
	// HeaderTraceparent is the W3C traceparent header key.
	HeaderTraceparent = "Traceparent"
	// HeaderContentType is the HTTP Content-Type header key.
	HeaderContentType = "Content-Type"
)
