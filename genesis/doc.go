// Package genesis provides the resilience core shared across Genesis
// services: the operation Context that carries a correlation identifier
// through one logical operation, and the structured Error model that
// classifies arbitrary failures into actionable categories.
//
// Typical usage at request ingress:
//
//	opCtx := genesis.NewContext("payments", "production", version)
//	ctx = genesis.WithContext(ctx, opCtx.WithRequest(req))
//
// Failures are normalized once, close to where they happen:
//
//	if err := call(ctx); err != nil {
//		return genesis.Handle(ctx, err)
//	}
//
// Higher-level behavior lives in subpackages: backoff, retry,
// circuitbreaker, health, metrics, config, and the net/http propagation
// helpers.
package genesis
