package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayrunners/attendapi/dbtest"
	"github.com/sundayrunners/attendapi/models"
)

// These pin the storage contract the services rely on: fields come back
// exactly as written, in particular a false active flag and plain
// YYYY-MM-DD date strings.

func TestRunRoundTrip(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	run := &models.Run{
		Date:      "2024-01-15",
		SessionID: "20240115-abcd1234",
		IsActive:  false,
		CreatedAt: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC),
	}
	_, err := db.NewInsert().Model(run).Exec(ctx)
	require.NoError(t, err)
	require.NotZero(t, run.ID)

	got := new(models.Run)
	require.NoError(t, db.NewSelect().Model(got).Where("id = ?", run.ID).Scan(ctx))
	assert.Equal(t, "2024-01-15", got.Date)
	assert.Equal(t, "20240115-abcd1234", got.SessionID)
	assert.False(t, got.IsActive, "a run inserted inactive must read back inactive")

	// Date lookups use the literal string written at insert.
	byDate := new(models.Run)
	require.NoError(t, db.NewSelect().Model(byDate).Where("date = ?", "2024-01-15").Scan(ctx))
	assert.Equal(t, run.ID, byDate.ID)
}

func TestCalendarConfigRoundTrip(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	cfg := &models.CalendarConfig{
		Date:      "2024-01-15",
		HasRun:    false,
		UpdatedAt: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC),
	}
	_, err := db.NewInsert().Model(cfg).Exec(ctx)
	require.NoError(t, err)

	got := new(models.CalendarConfig)
	require.NoError(t, db.NewSelect().Model(got).Where("date = ?", "2024-01-15").Scan(ctx))
	assert.Equal(t, "2024-01-15", got.Date)
	assert.False(t, got.HasRun)
}

func TestAttendanceRoundTrip(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	run := &models.Run{
		Date:      "2024-01-15",
		SessionID: "20240115-abcd1234",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(run).Exec(ctx)
	require.NoError(t, err)

	att := &models.Attendance{
		RunID:        run.ID,
		RunnerName:   "Jane Doe",
		RegisteredAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
	_, err = db.NewInsert().Model(att).Exec(ctx)
	require.NoError(t, err)

	got := new(models.Attendance)
	require.NoError(t, db.NewSelect().Model(got).Where("a.id = ?", att.ID).Scan(ctx))
	assert.Equal(t, run.ID, got.RunID)
	assert.Equal(t, "Jane Doe", got.RunnerName)
	assert.True(t, got.RegisteredAt.Equal(att.RegisteredAt))
}
