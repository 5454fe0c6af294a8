package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jhousteau/genesis-go/genesis"
	constant "github.com/jhousteau/genesis-go/genesis/constants"
	"github.com/jhousteau/genesis-go/genesis/log"
)

// ContextFromRequest builds the operation Context for an incoming
// request. An upstream X-Correlation-ID is honored so the whole call
// chain shares one correlation ID; otherwise a fresh one is minted.
// Trace identifiers come from any active span on the request context,
// falling back to the W3C traceparent header. Header-derived values are
// sanitized before they can reach a log entry.
func ContextFromRequest(req *http.Request, service, environment, version string) *genesis.Context {
	opCtx := genesis.NewContext(service, environment, version)

	if inbound := req.Header.Get(constant.HeaderCorrelationID); inbound != "" {
		opCtx.CorrelationID = log.Sanitize(inbound)
	}

	requestID := req.Header.Get(constant.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	} else {
		requestID = log.Sanitize(requestID)
	}

	opCtx = opCtx.
		WithRequest(genesis.RequestContext{
			Method:     req.Method,
			Path:       req.URL.Path,
			RemoteAddr: log.Sanitize(clientAddr(req)),
			RequestID:  requestID,
		}).
		WithSpan(req.Context())

	if opCtx.Trace == nil {
		if tc, ok := parseTraceparent(req.Header.Get(constant.HeaderTraceparent)); ok {
			opCtx = opCtx.WithTrace(tc)
		}
	}

	return opCtx
}

// parseTraceparent extracts the trace and span identifiers from a W3C
// traceparent value (version-traceid-spanid-flags). All-zero identifiers
// mean "no trace" and are rejected.
func parseTraceparent(value string) (genesis.TraceContext, bool) {
	parts := strings.Split(value, "-")
	if len(parts) != 4 || len(parts[1]) != 32 || len(parts[2]) != 16 {
		return genesis.TraceContext{}, false
	}

	if parts[1] == strings.Repeat("0", 32) || parts[2] == strings.Repeat("0", 16) {
		return genesis.TraceContext{}, false
	}

	return genesis.TraceContext{TraceID: parts[1], SpanID: parts[2]}, true
}

// clientAddr resolves the originating client address, preferring the
// proxy-set headers over the socket peer.
func clientAddr(req *http.Request) string {
	if realIP := req.Header.Get(constant.HeaderRealIP); realIP != "" {
		return realIP
	}

	if forwarded := req.Header.Get(constant.HeaderForwardedFor); forwarded != "" {
		// First hop is the original client.
		if first, _, found := strings.Cut(forwarded, ","); found {
			return strings.TrimSpace(first)
		}

		return strings.TrimSpace(forwarded)
	}

	return req.RemoteAddr
}
