// Package log defines the structured logging contract used across the
// genesis resilience packages. Implementations live in adapter packages
// (see the zap subpackage); library code depends only on the Logger
// interface and stays silent by default through NopLogger.
package log
