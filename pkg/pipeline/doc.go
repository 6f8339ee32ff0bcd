// Package pipeline wires the inference stages together: Newick parsing,
// quartet extraction, network resolution and rooting.
//
// Every stage runs under an OpenTelemetry span and reports a StageEvent to
// the optional Hooks, which is how the CLI and servers feed metrics.
package pipeline
