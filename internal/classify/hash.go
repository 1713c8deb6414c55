package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/pkg/formatting"
)

// hashTextLimit bounds how much of each block's text participates in the
// content hash. Identical leading text classifies identically, so the prefix
// is enough to key the cache.
const hashTextLimit = 100

type hashBlock struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ContentHash derives a stable cache key from a window's block ids and
// truncated text. The payload is canonicalized per RFC 8785 before hashing
// so the key does not depend on encoder field ordering.
func ContentHash(blks []blocks.Block) (string, error) {
	payload := make([]hashBlock, len(blks))
	for i, b := range blks {
		payload[i] = hashBlock{
			ID:   b.ID,
			Text: formatting.Truncate(b.Text, hashTextLimit),
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal hash payload: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize hash payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
