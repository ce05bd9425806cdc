package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// OrderID returns a random UUID string.
func OrderID() string {
	return uuid.NewString()
}

// Receipt returns a human-facing receipt number: a UTC timestamp plus a
// random suffix, e.g. RCPT-20250102150405-9F2C1A.
func Receipt(now time.Time) string {
	buf := make([]byte, 3)
	suffix := ""
	if _, err := rand.Read(buf); err == nil {
		suffix = strings.ToUpper(hex.EncodeToString(buf))
	} else {
		suffix = fmt.Sprintf("%06d", now.Nanosecond()%1000000)
	}
	return fmt.Sprintf("RCPT-%s-%s", now.UTC().Format("20060102150405"), suffix)
}
