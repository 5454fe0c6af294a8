package http

import (
	"net/http"

	"github.com/jhousteau/genesis-go/genesis"
	constant "github.com/jhousteau/genesis-go/genesis/constants"
)

// Transport is an http.RoundTripper that stamps outgoing requests with
// the ambient operation Context's correlation headers, so every service
// in the call chain logs the same correlation ID.
type Transport struct {
	// Base performs the actual round trip; nil falls back to
	// http.DefaultTransport.
	Base http.RoundTripper
}

// NewClient returns an *http.Client whose requests carry the correlation
// headers of the operation Context found in the request context.
func NewClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}

	client := *base
	client.Transport = &Transport{Base: base.Transport}

	return &client
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	opCtx, ok := genesis.FromContext(req.Context())
	if !ok {
		return t.base().RoundTrip(req)
	}

	// Per RoundTripper contract the request must not be mutated.
	req = req.Clone(req.Context())
	req.Header.Set(constant.HeaderCorrelationID, opCtx.CorrelationID)

	if opCtx.Trace != nil && opCtx.Trace.TraceID != "" {
		req.Header.Set(constant.HeaderTraceID, opCtx.Trace.TraceID)
	}

	return t.base().RoundTrip(req)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}

	return http.DefaultTransport
}
