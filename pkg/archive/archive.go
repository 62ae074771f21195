/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

const (
	createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    total       INTEGER NOT NULL,
    clean       BOOLEAN NOT NULL
)`

	createRunRecordsTable = `
CREATE TABLE IF NOT EXISTS run_records (
    run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    device      TEXT NOT NULL,
    test        TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    tags        TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ,
    finished_at TIMESTAMPTZ,
    attempt     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, device, test)
)`

	insertRun = `
INSERT INTO runs (run_id, started_at, finished_at, total, clean)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id) DO NOTHING`

	insertRecord = `
INSERT INTO run_records (run_id, device, test, status, message, tags, started_at, finished_at, attempt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id, device, test) DO UPDATE SET
    status = EXCLUDED.status,
    message = EXCLUDED.message,
    tags = EXCLUDED.tags,
    started_at = EXCLUDED.started_at,
    finished_at = EXCLUDED.finished_at,
    attempt = EXCLUDED.attempt`
)

// Archive writes finished runs to Postgres.
type Archive struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New wraps an existing pool and ensures the schema exists.
func New(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) (*Archive, error) {
	a := &Archive{pool: pool, logger: log}

	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Archive) ensureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRunsTable, createRunRecordsTable} {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("archive: failed to ensure schema: %w", err)
		}
	}

	return nil
}

// SaveRun persists the run header and every record in one batch round trip.
func (a *Archive) SaveRun(ctx context.Context, rep *report.Report) error {
	summary := rep.Summary()
	records := rep.Records()

	batch := &pgx.Batch{}
	batch.Queue(insertRun,
		summary.RunID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Total,
		summary.Clean,
	)

	for i := range records {
		rec := &records[i]
		batch.Queue(insertRecord,
			summary.RunID,
			rec.Device,
			rec.Test,
			string(rec.Status),
			rec.Message,
			strings.Join(rec.Tags, ","),
			rec.StartedAt,
			rec.FinishedAt,
			rec.Attempt,
		)
	}

	br := a.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close archive batch")
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("archive: failed to save run %s: %w", summary.RunID, err)
		}
	}

	a.logger.Info().
		Str("run_id", summary.RunID).
		Int("records", len(records)).
		Msg("Archived run")

	return nil
}

// LatestStatus returns the most recent status per (device, test) pair,
// useful for diffing a new run against history.
func (a *Archive) LatestStatus(ctx context.Context, deviceHost string) (map[string]models.Status, error) {
	const query = `
SELECT DISTINCT ON (test) test, status
FROM run_records
WHERE device = $1
ORDER BY test, finished_at DESC`

	rows, err := a.pool.Query(ctx, query, deviceHost)
	if err != nil {
		return nil, fmt.Errorf("archive: failed to query latest status: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.Status)

	for rows.Next() {
		var test, status string
		if err := rows.Scan(&test, &status); err != nil {
			return nil, fmt.Errorf("archive: failed to scan row: %w", err)
		}

		latest[test] = models.Status(status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: failed to read rows: %w", err)
	}

	return latest, nil
}

// Close releases the pool.
func (a *Archive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
