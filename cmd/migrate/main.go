// cmd/migrate/main.go
// Imports runs and attendance from the club's legacy MySQL tracker into the
// local PostgreSQL database.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/runclub?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/sundayrunners/attendapi/config"
	bundb "github.com/sundayrunners/attendapi/db"
	"github.com/sundayrunners/attendapi/models"
	"github.com/sundayrunners/attendapi/registration"
	"github.com/sundayrunners/attendapi/session"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/runclub?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	// Create tables (idempotent)
	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	runIDs, n, err := migrateRuns(ctx, myDB, pgDB)
	if err != nil {
		log.Fatalf("migrate runs: %v", err)
	}
	log.Printf("runs         %d rows migrated", n)

	n, err = migrateAttendances(ctx, myDB, pgDB, runIDs)
	if err != nil {
		log.Fatalf("migrate attendances: %v", err)
	}
	log.Printf("attendances  %d rows migrated", n)

	log.Println("migration complete")
}

// migrateRuns copies each distinct run day from the legacy tracker, minting
// fresh session identifiers. Returns legacy date -> new run id.
func migrateRuns(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (map[string]int, int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT DISTINCT run_date FROM attendance_log ORDER BY run_date`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runIDs := make(map[string]int)
	count := 0
	for rows.Next() {
		var runDate time.Time
		if err := rows.Scan(&runDate); err != nil {
			return nil, 0, err
		}
		date := runDate.Format("2006-01-02")

		run := &models.Run{
			Date:      date,
			SessionID: session.NewID(runDate),
			IsActive:  false, // historical runs import closed
			CreatedAt: runDate,
		}
		if _, err := pgDB.NewInsert().Model(run).
			On("CONFLICT (date) DO UPDATE SET date = EXCLUDED.date").
			Returning("id").
			Exec(ctx); err != nil {
			return nil, 0, err
		}
		runIDs[date] = run.ID
		count++
	}
	return runIDs, count, rows.Err()
}

// migrateAttendances copies attendance rows in batches, normalizing names
// the same way live registration does and skipping duplicates.
func migrateAttendances(ctx context.Context, myDB *sql.DB, pgDB *bun.DB, runIDs map[string]int) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		`SELECT runner, run_date, created_at FROM attendance_log ORDER BY created_at`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []*models.Attendance
	count := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pgDB.NewInsert().Model(&batch).
			On("CONFLICT (run_id, runner_name) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
		count += len(batch)
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var (
			runner    string
			runDate   time.Time
			createdAt time.Time
		)
		if err := rows.Scan(&runner, &runDate, &createdAt); err != nil {
			return 0, err
		}

		name := registration.NormalizeName(runner)
		if !registration.ValidateName(name) {
			log.Printf("skipping invalid legacy runner name %q", runner)
			continue
		}
		runID, ok := runIDs[runDate.Format("2006-01-02")]
		if !ok {
			continue
		}

		batch = append(batch, &models.Attendance{
			RunID:        runID,
			RunnerName:   name,
			RegisteredAt: createdAt,
		})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return count, nil
}
