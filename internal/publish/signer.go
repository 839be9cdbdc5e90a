package publish

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is the hex sha256 of an upload body.
func Digest(body []byte) string {
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:])
}

// Sign chains two sha256 rounds over the body digest, the timestamp and the
// shared secret.
func Sign(secret, digest, ts string) string {
	h1 := sha256.Sum256([]byte(digest + ts))
	h2 := sha256.Sum256([]byte(hex.EncodeToString(h1[:]) + secret))
	return hex.EncodeToString(h2[:])
}
