// Package session generates run session identifiers.
//
// An identifier is a date prefix for human debuggability plus a random
// suffix so the full string cannot be derived from the date alone. The
// suffix is what stops someone forging a QR target for a known run day.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// suffixLen is the number of random hex characters appended to the date prefix.
const suffixLen = 8

// NewID returns an identifier of the form YYYYMMDD-xxxxxxxx for the given
// run date, where the suffix is drawn from a random UUID.
func NewID(date time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return date.Format("20060102") + "-" + suffix
}

// NewIDFromDateString is NewID for an already-formatted YYYY-MM-DD date.
// The date string is assumed validated upstream; a malformed one still
// yields a usable identifier with the raw string as prefix.
func NewIDFromDateString(date string) string {
	if d, err := time.Parse("2006-01-02", date); err == nil {
		return NewID(d)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return strings.ReplaceAll(date, "-", "") + "-" + suffix
}
