// Package render computes and encodes button images.
//
// A button image is the composite of its bound action instances' visual
// contributions, drawn in binding order (later bindings on top). Results
// are cached keyed by a blake3 content hash of the button's binding set,
// parameters, and revision counter: the same state always yields the same
// bytes, and any mutation yields a fresh render.
//
// Rendering fans out over a bounded worker pool sized to the available
// CPU parallelism. The pool is its own scheduling domain: jobs come in on
// a channel, completions go out on a channel, and nothing in the pool
// touches device state directly.
package render
