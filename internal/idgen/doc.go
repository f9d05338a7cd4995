// Package idgen generates the opaque identifiers attached to tasks and
// gate tickets. It is internal so callers never depend on the identifier
// shape; tests stub NewFunc for deterministic output.
package idgen
