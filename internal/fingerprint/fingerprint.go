// Package fingerprint turns a simulation request into a stable digest usable
// as a cache key (§6, §4.10): same configuration in, same fingerprint out,
// regardless of field ordering or incidental formatting differences upstream.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Canonicalize produces a deterministic byte sequence for an arbitrary
// request payload (already decoded into maps/slices/scalars, e.g. from JSON
// unmarshaling into map[string]interface{}). Map keys are sorted, and
// null/zero-value-at-the-top-level fields are not treated specially beyond
// normal JSON semantics: the caller is expected to have already applied
// defaults before fingerprinting, so two semantically-identical requests
// serialize identically.
func Canonicalize(payload interface{}) []byte {
	var buf []byte
	buf = appendCanonical(buf, payload)
	return buf
}

// Digest returns the SHA-256 hex digest of the canonical encoding of payload.
func Digest(payload interface{}) string {
	sum := sha256.Sum256(Canonicalize(payload))
	return hex.EncodeToString(sum[:])
}

func appendCanonical(buf []byte, v interface{}) []byte {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, quoteString(k)...)
			buf = append(buf, ':')
			buf = appendCanonical(buf, val[k])
		}
		buf = append(buf, '}')
		return buf

	case []interface{}:
		buf = append(buf, '[')
		for i, e := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, e)
		}
		buf = append(buf, ']')
		return buf

	default:
		// Scalars (numbers, strings, bools, nil) encode through the standard
		// JSON marshaler, which already produces stable, minimal output for
		// these kinds once map ordering is no longer in play.
		b, err := json.Marshal(val)
		if err != nil {
			// Unreachable for values decoded from JSON in the first place.
			return append(buf, "null"...)
		}
		return append(buf, b...)
	}
}

func quoteString(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}
