package genesis

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestContext describes the inbound request an operation serves.
type RequestContext struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	RequestID  string `json:"request_id"`
}

// UserContext identifies the principal on whose behalf an operation runs.
type UserContext struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// TraceContext carries distributed-trace identifiers. The library only
// propagates these; it never creates spans.
type TraceContext struct {
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
}

// Context is the immutable identity of one logical operation. The
// correlation ID is generated once and shared by every derived Context, so
// all logs and errors of the operation can be joined downstream.
//
// Treat values as read-only: derivation helpers return copies.
type Context struct {
	CorrelationID string          `json:"correlation_id"`
	Service       string          `json:"service"`
	Environment   string          `json:"environment"`
	Version       string          `json:"version"`
	Request       *RequestContext `json:"request,omitempty"`
	User          *UserContext    `json:"user,omitempty"`
	Trace         *TraceContext   `json:"trace,omitempty"`
}

// NewContext creates a fresh operation Context with a new correlation ID.
// Call it once at a scope boundary (request ingress, job start).
func NewContext(service, environment, version string) *Context {
	return &Context{
		CorrelationID: uuid.New().String(),
		Service:       service,
		Environment:   environment,
		Version:       version,
	}
}

// WithRequest returns a copy of c carrying the request descriptor. The
// correlation ID is preserved.
func (c *Context) WithRequest(req RequestContext) *Context {
	derived := *c
	derived.Request = &req

	return &derived
}

// WithUser returns a copy of c carrying the authenticated principal.
func (c *Context) WithUser(user UserContext) *Context {
	derived := *c
	derived.User = &user

	return &derived
}

// WithTrace returns a copy of c carrying trace identifiers.
func (c *Context) WithTrace(tc TraceContext) *Context {
	derived := *c
	derived.Trace = &tc

	return &derived
}

// WithSpan returns a copy of c carrying the identifiers of the active
// OpenTelemetry span in ctx. When no span is recording, c is returned
// unchanged.
func (c *Context) WithSpan(ctx context.Context) *Context {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return c
	}

	return c.WithTrace(TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	})
}

type operationContextKey struct{}

// WithContext returns a context.Context carrying opCtx as the ambient
// operation Context for the scope it bounds. Scope isolation and nested
// restore come from context.Context itself: the parent value is untouched
// and concurrent scopes each hold their own derived context.
func WithContext(ctx context.Context, opCtx *Context) context.Context {
	return context.WithValue(ctx, operationContextKey{}, opCtx)
}

// FromContext extracts the ambient operation Context, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	opCtx, ok := ctx.Value(operationContextKey{}).(*Context)
	if !ok || opCtx == nil {
		return nil, false
	}

	return opCtx, true
}

// FromContextOrNew returns the ambient operation Context, or mints a fresh
// anonymous one when none is active. Error classification uses it so that
// every classified error carries a correlation ID.
func FromContextOrNew(ctx context.Context) *Context {
	if opCtx, ok := FromContext(ctx); ok {
		return opCtx
	}

	return NewContext("unknown", "unknown", "unknown")
}

// RunWithContext runs fn inside a scope whose ambient operation Context is
// opCtx. The previous ambient value is visible again as soon as fn returns,
// on every exit path, because the parent context is never mutated.
func RunWithContext(ctx context.Context, opCtx *Context, fn func(context.Context) error) error {
	return fn(WithContext(ctx, opCtx))
}
