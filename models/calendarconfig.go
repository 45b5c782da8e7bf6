package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CalendarConfig is the administrator's scheduling decision for a date.
// It is kept separate from Run so attendance history survives a day being
// toggled off and on again.
type CalendarConfig struct {
	bun.BaseModel `bun:"table:calendar_config,alias:cc"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Date      string    `bun:"date,notnull,unique" json:"date"`
	HasRun    bool      `bun:"has_run,notnull" json:"hasRun"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}
