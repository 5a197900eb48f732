package services

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const dealNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateDealNumber produces a short human-readable deal reference, e.g.
// DEAL-MEXT3K2A-7Q4F. The millisecond timestamp keeps numbers roughly
// sortable; the random suffix breaks same-millisecond collisions.
func GenerateDealNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = dealNumberAlphabet[int(b)%len(dealNumberAlphabet)]
	}

	return "DEAL-" + ts + "-" + string(suffix)
}
