package cache

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// Key derives the cache key for a text embedded under a given model and
// sequence cap. Any of the three changing must change the key.
func Key(modelID string, maxLength int, text string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%d\x00", modelID, maxLength)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
