// Package http propagates the operation Context across HTTP boundaries:
// an outbound RoundTripper attaching the correlation headers, and ingress
// helpers that rebuild a Context from an incoming request.
//
// Framework middleware stays with the hosting application; this package
// only covers the header contract.
package http
