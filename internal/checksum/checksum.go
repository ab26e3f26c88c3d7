// Package checksum fingerprints serialized collections. The persistence
// layer compares digests to skip rewriting unchanged payloads, and the
// external-reload path uses them to recognize the engine's own writes when
// the watcher reports them back.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
