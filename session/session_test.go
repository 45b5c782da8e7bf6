package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDFormat(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	id := NewID(date)

	require.True(t, strings.HasPrefix(id, "20240115-"), "id %q should carry the date prefix", id)
	suffix := strings.TrimPrefix(id, "20240115-")
	assert.Len(t, suffix, suffixLen)
}

func TestNewIDUnique(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID(date)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestNewIDFromDateString(t *testing.T) {
	id := NewIDFromDateString("2024-01-15")
	assert.True(t, strings.HasPrefix(id, "20240115-"))

	// A malformed date still yields a usable identifier.
	id = NewIDFromDateString("not-a-date")
	assert.NotEmpty(t, id)
	assert.Contains(t, id, "-")
}
