package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewReference builds a unique reference of the form
// <prefix><last 6 digits of unix millis><8 random hex chars>.
func NewReference(prefix string) (string, error) {
	return newReferenceAt(prefix, UTCNow())
}

func newReferenceAt(prefix string, now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference: %w", err)
	}
	millis := now.UnixMilli() % 1_000_000
	return fmt.Sprintf("%s%06d%s", prefix, millis, hex.EncodeToString(buf)), nil
}
