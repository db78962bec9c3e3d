package pack

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// trailerSize is the width of the pack integrity trailer: a truncated
// BLAKE3 digest, 128 bits, enough to catch truncation and bit rot without
// paying for a full 256-bit digest on every pack write.
const trailerSize = 16

// digest128 returns the first 16 bytes of the BLAKE3 digest of b.
func digest128(b []byte) []byte {
	h := blake3.New()
	h.Write(b) //nolint:errcheck // hash.Hash.Write never errors
	return h.Sum(nil)[:trailerSize]
}

// DigestHex returns the hex-encoded BLAKE3-128 digest of b, in the form
// the catalog stores in its digest column.
func DigestHex(b []byte) string {
	return hex.EncodeToString(digest128(b))
}
