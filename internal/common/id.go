package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentID derives the stable content identifier from a source URL.
// Format: vid_<16 hex chars>. Deterministic so resubmissions of the same URL
// map to the same lifecycle row and ingestion idempotency key.
func ContentID(sourceURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sourceURL)))
	return "vid_" + hex.EncodeToString(sum[:8])
}
