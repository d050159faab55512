package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/mkls/throttle-async-function/errors"
)

// Keyer derives a cache key from an argument list.
// Implementations must be safe for concurrent use.
type Keyer interface {
	// Key returns a deterministic key for args. Argument lists that are deeply
	// equal up to object field ordering map to the same key.
	Key(args []any) (string, error)
}

// canonicalBytes serializes args into a canonical JSON form. Marshaling structs
// and re-reading them as generic values turns fields into map keys, which
// encoding/json emits in sorted order, making the result independent of field
// declaration order.
func canonicalBytes(args []any) ([]byte, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrNotCacheable, "cachekey", "canonicalBytes", err.Error())
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.WrapInvalid(errors.ErrNotCacheable, "cachekey", "canonicalBytes", err.Error())
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrNotCacheable, "cachekey", "canonicalBytes", err.Error())
	}

	return canonical, nil
}

// SHA256Keyer derives keys as hex SHA-256 digests of the canonical
// serialization. This is the default keyer.
type SHA256Keyer struct{}

// Key implements Keyer.
func (SHA256Keyer) Key(args []any) (string, error) {
	canonical, err := canonicalBytes(args)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// XXHashKeyer derives keys as xxhash64 digests of the canonical serialization.
// Shorter and faster than SHA-256 at the cost of collision resistance.
type XXHashKeyer struct{}

// Key implements Keyer.
func (XXHashKeyer) Key(args []any) (string, error) {
	canonical, err := canonicalBytes(args)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(canonical), 16), nil
}

// StructuralKeyer derives keys by structurally hashing the argument values,
// with no serialization step. Map iteration order and struct field order do
// not affect the result. Keys are not stable across processes.
type StructuralKeyer struct{}

// Key implements Keyer.
func (StructuralKeyer) Key(args []any) (string, error) {
	sum, err := hashstructure.Hash(args, hashstructure.FormatV2, nil)
	if err != nil {
		return "", errors.WrapInvalid(errors.ErrNotCacheable, "cachekey", "Key", err.Error())
	}
	return strconv.FormatUint(sum, 16), nil
}
