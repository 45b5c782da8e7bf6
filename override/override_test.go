package override_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayrunners/attendapi/dbtest"
	"github.com/sundayrunners/attendapi/models"
	"github.com/sundayrunners/attendapi/override"
)

func TestAddCreatesRunWhenMissing(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	att, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)
	assert.NotZero(t, att.ID)
	assert.Equal(t, "Jane Doe", att.RunnerName)
	assert.False(t, att.RegisteredAt.IsZero())

	run := new(models.Run)
	require.NoError(t, db.NewSelect().Model(run).Where("date = ?", "2024-01-15").Scan(ctx))
	assert.True(t, run.IsActive)
	assert.NotEmpty(t, run.SessionID)
	assert.Equal(t, run.ID, att.RunID)
}

func TestAddReusesExistingRun(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	run := &models.Run{Date: "2024-01-15", SessionID: "20240115-abcd1234", IsActive: false, CreatedAt: time.Now()}
	_, err := db.NewInsert().Model(run).Exec(ctx)
	require.NoError(t, err)

	att, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, run.ID, att.RunID)

	count, err := db.NewSelect().Model((*models.Run)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddRejectsDuplicateAndBadInput(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)

	_, err = svc.Add(ctx, "  Jane  Doe ", "2024-01-15", time.Time{})
	assert.ErrorIs(t, err, override.ErrDuplicate, "normalized name collides")

	_, err = svc.Add(ctx, "Jane<Doe>", "2024-01-15", time.Time{})
	assert.ErrorIs(t, err, override.ErrBadName)

	_, err = svc.Add(ctx, "Jane Doe", "Jan 15 2024", time.Time{})
	assert.Error(t, err)
}

func TestEdit(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	att, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "John Smith", "2024-01-15", time.Time{})
	require.NoError(t, err)

	newName := "Jane Smyth"
	updated, err := svc.Edit(ctx, att.ID, &newName, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smyth", updated.RunnerName)

	// Renaming onto an existing (run, name) pair hits the invariant.
	collide := "John Smith"
	_, err = svc.Edit(ctx, att.ID, &collide, nil)
	assert.ErrorIs(t, err, override.ErrDuplicate)

	ts := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	updated, err = svc.Edit(ctx, att.ID, nil, &ts)
	require.NoError(t, err)
	assert.Equal(t, ts, updated.RegisteredAt.UTC())

	_, err = svc.Edit(ctx, 99999, &newName, nil)
	assert.ErrorIs(t, err, override.ErrNotFound)
}

func TestDelete(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	att, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, att.ID))
	assert.ErrorIs(t, svc.Delete(ctx, att.ID), override.ErrNotFound)
}

func TestDeleteRunCascades(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Time{})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "John Smith", "2024-01-15", time.Time{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRun(ctx, "2024-01-15"))

	runs, err := db.NewSelect().Model((*models.Run)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, runs)
	atts, err := db.NewSelect().Model((*models.Attendance)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, atts)

	assert.ErrorIs(t, svc.DeleteRun(ctx, "2024-01-15"), override.ErrNotFound)
}

func TestList(t *testing.T) {
	db := dbtest.New(t)
	svc := override.New(db, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Jane Doe", "2024-01-15", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = svc.Add(ctx, "John Smith", "2024-01-15", time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = svc.Add(ctx, "Pat Lee", "2024-01-16", time.Time{})
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	day, err := svc.List(ctx, "2024-01-15")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "John Smith", day[0].RunnerName, "most recent first")
	require.NotNil(t, day[0].Run)
	assert.Equal(t, "2024-01-15", day[0].Run.Date)
}
