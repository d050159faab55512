// Package cachekey derives cache keys from argument lists.
//
// Two argument lists produce the same key iff they are deeply, structurally
// equal regardless of object field ordering. Keys are fixed-size digests of a
// canonical serialization, so key length is bounded no matter how large the
// arguments are. Digest collisions are accepted as an undetected risk.
//
// # Keyers
//
//   - SHA256Keyer: hex SHA-256 of the canonical JSON serialization. The
//     default; content-addressed and stable across processes.
//   - XXHashKeyer: xxhash64 of the same bytes. Faster, shorter keys, weaker
//     collision resistance. Suitable for hot paths.
//   - StructuralKeyer: structural hash of the argument values themselves,
//     skipping serialization entirely. Arguments do not need to be
//     JSON-serializable, but keys are only stable within a process.
//
// # Canonical serialization
//
// Arguments are marshaled to JSON and round-tripped through generic values so
// struct fields become sorted map keys. Numeric types collapse to float64 in
// this representation: Key([]any{1}) equals Key([]any{1.0}). Callers that need
// to distinguish numeric types should use the StructuralKeyer.
package cachekey
