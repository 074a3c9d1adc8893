// Package storage persists gauge snapshots to SQLite so gauges survive a
// restart.
//
// Only the gauge state is stored: one row per category plus its history
// points. Each save replaces the previous snapshot of the saved categories in
// a single transaction, so a crash mid-save leaves the last complete snapshot
// in place. Loaded gauges are not trusted blindly; the gauge store re-clamps
// and re-prunes them on restore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
)

// schemaVersion is bumped whenever the tables change shape.
const schemaVersion = "1"

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gauges (
	category        TEXT PRIMARY KEY,
	range_min       REAL NOT NULL,
	range_max       REAL NOT NULL,
	current_value   REAL NOT NULL,
	smoothed_value  REAL NOT NULL,
	baseline_7d     REAL NOT NULL,
	baseline_30d    REAL NOT NULL,
	trend_direction TEXT NOT NULL,
	trend_strength  REAL NOT NULL,
	confidence      REAL NOT NULL,
	last_updated    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
	category  TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	value     REAL NOT NULL,
	FOREIGN KEY (category) REFERENCES gauges(category) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_history_category_ts ON history(category, timestamp DESC);
`

// Storage is a SQLite-backed gauge snapshot store. Safe for concurrent use.
type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath. ":memory:" gives a
// private in-memory database.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "pulsegauge", "pulsegauge.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" to one database and serialises
	// writers on file databases.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("Storage opened at %s", dbPath)
	return s, nil
}

func (s *Storage) migrate() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return err
	}
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		schemaVersion,
	)
	return err
}

// Close releases the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveGauges replaces the stored snapshot of every given gauge. Invalid gauges
// abort the whole save.
func (s *Storage) SaveGauges(ctx context.Context, gauges []models.GaugeData) error {
	for i := range gauges {
		if err := gauges[i].Validate(); err != nil {
			return fmt.Errorf("invalid gauge %s: %w", gauges[i].Category, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO gauges (category, range_min, range_max, current_value, smoothed_value,
			baseline_7d, baseline_30d, trend_direction, trend_strength, confidence, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			range_min = excluded.range_min,
			range_max = excluded.range_max,
			current_value = excluded.current_value,
			smoothed_value = excluded.smoothed_value,
			baseline_7d = excluded.baseline_7d,
			baseline_30d = excluded.baseline_30d,
			trend_direction = excluded.trend_direction,
			trend_strength = excluded.trend_strength,
			confidence = excluded.confidence,
			last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare gauge upsert: %w", err)
	}
	defer upsert.Close()

	insertPoint, err := tx.PrepareContext(ctx, `INSERT INTO history (category, timestamp, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer insertPoint.Close()

	points := 0
	for _, g := range gauges {
		if _, err := upsert.ExecContext(ctx,
			string(g.Category),
			g.ValueRange.Min,
			g.ValueRange.Max,
			g.CurrentValue,
			g.SmoothedValue,
			g.Baseline7d,
			g.Baseline30d,
			string(g.TrendDirection),
			g.TrendStrength,
			g.Confidence,
			g.LastUpdated.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to save gauge %s: %w", g.Category, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE category = ?`, string(g.Category)); err != nil {
			return fmt.Errorf("failed to clear history for %s: %w", g.Category, err)
		}
		for _, p := range g.History {
			if _, err := insertPoint.ExecContext(ctx, string(g.Category), p.Timestamp.UnixNano(), p.Value); err != nil {
				return fmt.Errorf("failed to save history for %s: %w", g.Category, err)
			}
			points++
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('saved_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to record save time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	logger.Debug("Saved %d gauges with %d history points", len(gauges), points)
	return nil
}

// LoadGauges returns every stored gauge with its history newest first. An
// empty database yields an empty map.
func (s *Storage) LoadGauges(ctx context.Context) (map[models.Category]models.GaugeData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, range_min, range_max, current_value, smoothed_value,
			baseline_7d, baseline_30d, trend_direction, trend_strength, confidence, last_updated
		FROM gauges
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query gauges: %w", err)
	}

	gauges := make(map[models.Category]models.GaugeData)
	for rows.Next() {
		var (
			g           models.GaugeData
			category    string
			direction   string
			lastUpdated int64
		)
		if err := rows.Scan(
			&category,
			&g.ValueRange.Min,
			&g.ValueRange.Max,
			&g.CurrentValue,
			&g.SmoothedValue,
			&g.Baseline7d,
			&g.Baseline30d,
			&direction,
			&g.TrendStrength,
			&g.Confidence,
			&lastUpdated,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan gauge: %w", err)
		}
		g.Category = models.Category(category)
		g.TrendDirection = models.TrendDirection(direction)
		g.LastUpdated = time.Unix(0, lastUpdated).UTC()
		g.History = []models.HistoryPoint{}
		gauges[g.Category] = g
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read gauges: %w", err)
	}
	_ = rows.Close()

	for category, g := range gauges {
		history, err := s.loadHistory(ctx, category)
		if err != nil {
			return nil, err
		}
		g.History = history
		gauges[category] = g
	}
	return gauges, nil
}

func (s *Storage) loadHistory(ctx context.Context, category models.Category) ([]models.HistoryPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, value FROM history WHERE category = ? ORDER BY timestamp DESC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", category, err)
	}
	defer rows.Close()

	history := []models.HistoryPoint{}
	for rows.Next() {
		var ts int64
		var p models.HistoryPoint
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history for %s: %w", category, err)
		}
		p.Timestamp = time.Unix(0, ts).UTC()
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", category, err)
	}
	return history, nil
}

// SavedAt reports when the last snapshot was committed. ok is false if
// nothing was saved yet.
func (s *Storage) SavedAt(ctx context.Context) (t time.Time, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'saved_at'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read save time: %w", err)
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid save time %q: %w", raw, err)
	}
	return t, true, nil
}
