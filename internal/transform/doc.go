// Package transform defines the per-line Transformer contract used by the
// pump and resolves a command-line transformer argument into one.
//
// An argument is tried, in order, as a registered builtin name, an
// "expr:" govaluate expression, a "grpc://" plugin address, and finally as
// JavaScript (optionally prefixed "js:") that must evaluate to a function
// called as fn(line, index). Only string results are written; anything else
// is dropped. Transformers that also implement io.Closer are closed exactly
// once when the pump stops, which is where exit-time flushes happen.
// A transformer that is built but never run is released with Discard
// instead, which skips those hooks.
//
// String lengths, wherever a transformer reports or counts them, are in
// UTF-16 code units (see Length), so "é😀" has length 3.
package transform
