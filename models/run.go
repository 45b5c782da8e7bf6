package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Run is one calendar day's scheduled event instance. At most one row exists
// per date; the session ID is the opaque identifier QR codes resolve to.
type Run struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Date      string    `bun:"date,notnull,unique" json:"date"`
	SessionID string    `bun:"session_id,notnull,unique" json:"sessionID"`
	// No default tag on the flag: bun renders a zero value with a SQL
	// default as the DEFAULT keyword, which would silently activate runs
	// inserted inactive. Create sites set it explicitly.
	IsActive bool `bun:"is_active,notnull" json:"isActive"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
