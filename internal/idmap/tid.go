package idmap

import "strings"

// tidAlphabet is the base32-sortable alphabet used by AT Protocol record
// keys (TIDs), per spec.md §4.2/GLOSSARY.
const tidAlphabet = "234567abcdefghijklmnopqrstuvwxyz"

// decodeTID decodes a 13-character TID into its raw 64-bit value (the
// leading, always-zero 65th bit is discarded by the uint64 overflow during
// accumulation, which is the intended behavior).
func decodeTID(s string) (uint64, bool) {
	if len(s) != 13 {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(tidAlphabet, s[i])
		if idx < 0 {
			return 0, false
		}
		v = (v << 5) | uint64(idx)
	}
	return v, true
}

// tidTimestampMicros extracts the 53-bit microsecond timestamp from a
// decoded TID value by shifting off the low 10 clock-identifier bits.
func tidTimestampMicros(v uint64) int64 {
	return int64(v >> 10)
}

// rkeyFromATURI returns the final path segment of an AT URI
// (at://did/collection/rkey), or "" if the URI has fewer than three
// segments.
func rkeyFromATURI(uri string) string {
	const prefix = "at://"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(uri, prefix), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

// didFromATURI returns the DID segment of an AT URI, or "" if malformed.
func didFromATURI(uri string) string {
	const prefix = "at://"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(uri, prefix)
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
