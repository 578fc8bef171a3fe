// Package xid mints the prefixed identifiers used for generation runs
// and audit entries.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>-<unixnano>-<hex>": the timestamp keeps ids
// roughly ordered by creation time and the random suffix separates ids
// minted in the same nanosecond. If the entropy source fails the
// timestamp stands alone.
func New(prefix string) string {
	now := time.Now().UnixNano()
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now, hex.EncodeToString(suffix))
}
