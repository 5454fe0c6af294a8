// Package server runs the library's HTTP surface, the health probe
// endpoints included, with signal-driven graceful shutdown.
package server
