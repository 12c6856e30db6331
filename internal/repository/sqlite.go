package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStore stores sightings in a single SQLite file. It is meant for local runs.
type SQLiteStore struct {
	db         *sql.DB
	log        *slog.Logger
	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at dbPath and applies the migrations.
func OpenSQLite(ctx context.Context, dbPath string, log *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	// busy_timeout waits on locks, WAL with synchronous NORMAL keeps writes cheap.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.Clean(dbPath),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err = migrate(ctx, db, goose.DialectSQLite3, "sqlite", log); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db, log: log}
	if err = store.prepare(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) prepare(ctx context.Context) error {
	var err error

	s.insertStmt, err = s.db.PrepareContext(ctx, `
		INSERT INTO sightings (sighting_id, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sighting_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.getStmt, err = s.db.PrepareContext(ctx, `
		SELECT sighting_id, latitude, longitude, created_at, COALESCE(place, '')
		FROM sightings
		WHERE sighting_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}

	s.listStmt, err = s.db.PrepareContext(ctx, `
		SELECT sighting_id, latitude, longitude, created_at, COALESCE(place, '')
		FROM sightings
		ORDER BY created_at ASC, sighting_id ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.getStmt, s.listStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}

	return s.db.Close()
}

// Ping verifies the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	return s.db.PingContext(ctx)
}

// ListSightings returns every stored sighting, oldest first.
func (s *SQLiteStore) ListSightings(ctx context.Context) ([]models.Sighting, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	sightings := make([]models.Sighting, 0)
	for rows.Next() {
		sighting, errScan := scanSighting(rows)
		if errScan != nil {
			return nil, errScan
		}
		sightings = append(sightings, sighting)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return sightings, nil
}

// CreateSighting inserts a sighting unless its id already exists and returns the stored record.
func (s *SQLiteStore) CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error) {
	if s == nil || s.db == nil {
		return models.Sighting{}, ErrStoreClosed
	}

	_, err := s.insertStmt.ExecContext(ctx,
		sighting.ID.String(), sighting.Latitude, sighting.Longitude, sighting.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return models.Sighting{}, fmt.Errorf("failed to insert sighting: %w", err)
	}

	stored, err := scanSighting(s.getStmt.QueryRowContext(ctx, sighting.ID.String()))
	if err != nil {
		return models.Sighting{}, err
	}

	s.log.DebugContext(ctx, "Sighting stored", "id", stored.ID, "lat", stored.Latitude, "lng", stored.Longitude)

	return stored, nil
}

// FetchSightingsForLabelling retrieves sightings that still need a place label.
func (s *SQLiteStore) FetchSightingsForLabelling(ctx context.Context, limit int) ([]models.LabelTask, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sighting_id, latitude, longitude
		FROM sightings
		WHERE place IS NULL AND label_attempts < ?
		ORDER BY created_at ASC
		LIMIT ?
	`, MaxLabelAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlabelled sightings: %w", err)
	}
	defer rows.Close()

	var tasks []models.LabelTask
	for rows.Next() {
		var (
			rawID string
			task  models.LabelTask
		)
		if err = rows.Scan(&rawID, &task.Coords.Latitude, &task.Coords.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan unlabelled sighting: %w", err)
		}
		if task.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("failed to parse sighting id %q: %w", rawID, err)
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return tasks, nil
}

// UpdateSightingPlace stores the place label of a sighting.
func (s *SQLiteStore) UpdateSightingPlace(ctx context.Context, id uuid.UUID, place string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sightings SET place = ?, label_error = NULL WHERE sighting_id = ?`, place, id.String())
	if err != nil {
		return fmt.Errorf("failed to update sighting place: %w", err)
	}

	return nil
}

// IncrementFailureCount increments the label attempt count of a sighting and records the error.
func (s *SQLiteStore) IncrementFailureCount(ctx context.Context, id uuid.UUID, errMsg string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sightings SET label_attempts = label_attempts + 1, label_error = ? WHERE sighting_id = ?`,
		errMsg, id.String())
	if err != nil {
		return fmt.Errorf("failed to update label error and number of attempts: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSighting(row rowScanner) (models.Sighting, error) {
	var (
		rawID     string
		createdAt int64
		sighting  models.Sighting
	)
	if err := row.Scan(&rawID, &sighting.Latitude, &sighting.Longitude, &createdAt, &sighting.Place); err != nil {
		return models.Sighting{}, fmt.Errorf("failed to scan sighting: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return models.Sighting{}, fmt.Errorf("failed to parse sighting id %q: %w", rawID, err)
	}
	sighting.ID = id
	sighting.CreatedAt = time.UnixMicro(createdAt).UTC()

	return sighting, nil
}
