package favorite

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// hashLength is in hex characters (64 bits of the digest).
const hashLength = 16

// Hash is a short, order-independent fingerprint of a team set. The whole
// sorted key list is digested so sets sharing a prefix get distinct keys.
func Hash(teams []Team) string {
	keys := make([]string, 0, len(teams))
	for _, team := range teams {
		keys = append(keys, team.Key())
	}
	sort.Strings(keys)

	sum := sha256.Sum256([]byte(strings.Join(keys, ",")))
	return hex.EncodeToString(sum[:])[:hashLength]
}
