package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cleanbot/server/models"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore handles database operations using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage manager
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema initializes the database schema
func (dm *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		map TEXT NOT NULL,
		reason TEXT NOT NULL,
		message TEXT NOT NULL,
		ticks INTEGER NOT NULL,
		cleaned INTEGER NOT NULL,
		total INTEGER NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		productivity INTEGER NOT NULL,
		ledger JSONB NOT NULL,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		finished_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS runs_finished_at_idx ON runs (finished_at DESC);
	`

	_, err := dm.db.Exec(schema)
	return err
}

// SaveMap saves a map template to the database
func (dm *PostgresStore) SaveMap(m *models.MapTemplate) error {
	query := `
	INSERT INTO maps (name, body, created_at, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (name)
	DO UPDATE SET body = $2, updated_at = $4
	`

	_, err := dm.db.Exec(query, m.Name, m.Text, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}

	return nil
}

// LoadMap loads a map template from the database by name
func (dm *PostgresStore) LoadMap(name string) (*models.MapTemplate, error) {
	query := `SELECT name, body, created_at, updated_at FROM maps WHERE name = $1`

	var m models.MapTemplate
	err := dm.db.QueryRow(query, name).Scan(&m.Name, &m.Text, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("map %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	return &m, nil
}

// SaveRun saves a finished run report to the database
func (dm *PostgresStore) SaveRun(report *models.RunReport) error {
	ledgerJSON, err := json.Marshal(report.Ledger)
	if err != nil {
		return fmt.Errorf("failed to marshal run ledger: %w", err)
	}

	query := `
	INSERT INTO runs (id, map, reason, message, ticks, cleaned, total, elapsed_ms, productivity, ledger, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id)
	DO UPDATE SET
		reason = $3, message = $4, ticks = $5, cleaned = $6, total = $7,
		elapsed_ms = $8, productivity = $9, ledger = $10, finished_at = $12
	`

	_, err = dm.db.Exec(query,
		report.ID, report.Map, report.Reason, report.Message,
		report.Ticks, report.Cleaned, report.Total,
		report.ElapsedMs, report.Productivity, string(ledgerJSON),
		report.StartedAt, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

const runColumns = `id, map, reason, message, ticks, cleaned, total, elapsed_ms, productivity, ledger, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.RunReport, error) {
	var report models.RunReport
	var ledgerJSON string

	err := row.Scan(
		&report.ID, &report.Map, &report.Reason, &report.Message,
		&report.Ticks, &report.Cleaned, &report.Total,
		&report.ElapsedMs, &report.Productivity, &ledgerJSON,
		&report.StartedAt, &report.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ledgerJSON), &report.Ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run ledger: %w", err)
	}
	return &report, nil
}

// LoadRun loads a run report from the database by id
func (dm *PostgresStore) LoadRun(id string) (*models.RunReport, error) {
	row := dm.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = $1`, id)

	report, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return report, nil
}

// ListRuns returns run reports, most recently finished first
func (dm *PostgresStore) ListRuns(limit int) ([]*models.RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY finished_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := dm.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var reports []*models.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Close closes the database connection
func (dm *PostgresStore) Close() error {
	slog.Info("Closing database connection")
	return dm.db.Close()
}
