package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MaxLabelAttempts is the number of failed reverse geocoding attempts after which a sighting is skipped.
const MaxLabelAttempts = 5

// ErrStoreClosed is returned when a store is used after Close.
var ErrStoreClosed = errors.New("store not initialized")

// Database is the subset of pgxpool.Pool used by Repository. pgxmock satisfies it in tests.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Repository stores sightings in PostgreSQL.
type Repository struct {
	db  Database
	log *slog.Logger
}

// Interface is implemented by every sighting store.
type Interface interface {
	ListSightings(ctx context.Context) ([]models.Sighting, error)
	CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error)
	FetchSightingsForLabelling(ctx context.Context, limit int) ([]models.LabelTask, error)
	UpdateSightingPlace(ctx context.Context, id uuid.UUID, place string) error
	IncrementFailureCount(ctx context.Context, id uuid.UUID, errMsg string) error
	Ping(ctx context.Context) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// Ping verifies the database connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
