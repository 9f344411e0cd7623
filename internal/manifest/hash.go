package manifest

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashText returns the blake3 hex digest used for both whole-file and
// per-section content hashes.
func HashText(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
