package store

import (
	"context"
	"database/sql"
	"time"
)

// StartRun opens a run-log row for a discovery/aggregation/match batch.
func StartRun(ctx context.Context, db *sql.DB, id, runType string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO runs (id, type, status, started_at) VALUES (?,?, 'running', ?);`,
		id, runType, time.Now().UTC().Format(time.RFC3339))
	return err
}

func FinishRun(ctx context.Context, db *sql.DB, id, status, statsJSON, errMsg string) error {
	if statsJSON == "" {
		statsJSON = "{}"
	}
	_, err := db.ExecContext(ctx, `
UPDATE runs SET status = ?, finished_at = ?, stats = ?, error = ? WHERE id = ?;`,
		status, time.Now().UTC().Format(time.RFC3339), statsJSON, errMsg, id)
	return err
}

// LastRun returns the most recent run of a type, for status reporting.
func LastRun(ctx context.Context, db *sql.DB, runType string) (id, status string, startedAt time.Time, err error) {
	var ts string
	err = db.QueryRowContext(ctx, `
SELECT id, status, started_at FROM runs WHERE type = ? ORDER BY started_at DESC LIMIT 1;`,
		runType).Scan(&id, &status, &ts)
	if err == sql.ErrNoRows {
		return "", "", time.Time{}, nil
	}
	if err != nil {
		return "", "", time.Time{}, err
	}
	startedAt, _ = time.Parse(time.RFC3339, ts)
	return id, status, startedAt, nil
}
