package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Attendance records one runner's registration against a Run.
// The (run_id, runner_name) pair is unique; the constraint is the final
// arbiter when two submissions for the same name race each other.
type Attendance struct {
	bun.BaseModel `bun:"table:attendances,alias:a"`

	ID           int       `bun:"id,pk,autoincrement" json:"id"`
	RunID        int       `bun:"run_id,notnull,unique:attendances_no_dupes" json:"runID"`
	RunnerName   string    `bun:"runner_name,notnull,unique:attendances_no_dupes" json:"runnerName"`
	RegisteredAt time.Time `bun:"registered_at,notnull,default:current_timestamp" json:"registeredAt"`

	Run *Run `bun:"rel:belongs-to,join:run_id=id" json:"-"`
}
