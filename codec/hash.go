package codec

import (
	"crypto/sha256"

	"github.com/Neumenon/collate/collate"
)

// Fingerprint returns the SHA-256 of the uncompressed encoding of t as
// lowercase hex. Equal tables have equal fingerprints.
func Fingerprint(t *collate.Table) (string, error) {
	b, err := Encode(t)
	if err != nil {
		return "", err
	}
	return HashToHex(sha256.Sum256(b)), nil
}

// HashToHex converts a 32-byte hash to a lowercase hex string.
func HashToHex(h [32]byte) string {
	const hextable = "0123456789abcdef"
	var buf [64]byte
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf[:])
}
