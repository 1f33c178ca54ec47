// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

//go:build duckdb

package durable

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tagora/engine/internal/metrics"
	"github.com/tagora/engine/internal/models"
)

// DuckDBMirror is an embedded, queryable mirror of every encoded event,
// kept entirely outside the ingest critical path. It exists for ad-hoc
// SQL analysis of historical events the in-memory Minute Store has
// already rolled off of.
type DuckDBMirror struct {
	db *sql.DB
}

// OpenDuckDBMirror opens (creating if necessary) the mirror database at
// path and ensures its schema exists.
func OpenDuckDBMirror(path string) (*DuckDBMirror, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("durable: open duckdb mirror: %w", err)
	}
	db.SetMaxOpenConns(1) // DuckDB's single-writer model

	m := &DuckDBMirror{db: db}
	if err := m.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *DuckDBMirror) initSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ad_events (
			time_ms     BIGINT NOT NULL,
			cookie      VARCHAR NOT NULL,
			action      TINYINT NOT NULL,
			device      TINYINT NOT NULL,
			country_id  TINYINT NOT NULL,
			origin_id   SMALLINT NOT NULL,
			product_id  INTEGER NOT NULL,
			brand_id    SMALLINT NOT NULL,
			category_id SMALLINT NOT NULL,
			price       INTEGER NOT NULL,
			inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("durable: create ad_events table: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS ad_events_time_idx ON ad_events(time_ms)
	`)
	if err != nil {
		return fmt.Errorf("durable: create ad_events index: %w", err)
	}
	return nil
}

// Insert mirrors one encoded event. Errors are classified so the
// caller's DLQ can decide whether to retry.
func (m *DuckDBMirror) Insert(ctx context.Context, e models.EncodedEvent, action models.Action) error {
	start := time.Now()
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO ad_events
			(time_ms, cookie, action, device, country_id, origin_id, product_id, brand_id, category_id, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.TimeMs, e.Cookie, int(action), int(e.Device), e.CountryID, e.OriginID, e.ProductID, e.BrandID, e.CategoryID, e.Price)
	metrics.RecordDurableWrite("duckdb", time.Since(start), err)
	if err != nil {
		return NewRetryableError("duckdb insert failed", err)
	}
	return nil
}

// Close releases the underlying connection.
func (m *DuckDBMirror) Close() error {
	return m.db.Close()
}
