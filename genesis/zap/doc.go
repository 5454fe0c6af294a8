// Package zap implements the genesis log.Logger interface on top of
// go.uber.org/zap. Log events are tee'd into the OpenTelemetry log bridge
// and automatically annotated with trace and span identifiers when the
// context carries an active span.
package zap
