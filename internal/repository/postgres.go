package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
)

// ListSightings returns every stored sighting, oldest first. Ties on created_at are broken by id
// so the order is stable between requests.
func (r *Repository) ListSightings(ctx context.Context) ([]models.Sighting, error) {
	query := `
		SELECT sighting_id, latitude, longitude, created_at, COALESCE(place, '')
		FROM public.sightings
		ORDER BY created_at ASC, sighting_id ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	sightings := make([]models.Sighting, 0)
	for rows.Next() {
		var (
			rawID    string
			sighting models.Sighting
		)
		if errScan := rows.Scan(
			&rawID, &sighting.Latitude, &sighting.Longitude, &sighting.CreatedAt, &sighting.Place,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", errScan)
		}
		if sighting.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("failed to parse sighting id %q: %w", rawID, err)
		}
		sightings = append(sightings, sighting)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return sightings, nil
}

// CreateSighting inserts a sighting and returns the stored record. Inserting an id that already
// exists leaves the stored row untouched and returns it, so retried creates are idempotent.
func (r *Repository) CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error) {
	query := `
		INSERT INTO public.sightings (sighting_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sighting_id) DO UPDATE SET sighting_id = EXCLUDED.sighting_id
		RETURNING sighting_id, latitude, longitude, created_at, COALESCE(place, '');
	`

	var (
		rawID  string
		stored models.Sighting
	)
	err := r.db.QueryRow(ctx, query,
		sighting.ID.String(), sighting.Latitude, sighting.Longitude, sighting.CreatedAt,
	).Scan(&rawID, &stored.Latitude, &stored.Longitude, &stored.CreatedAt, &stored.Place)
	if err != nil {
		return models.Sighting{}, fmt.Errorf("failed to insert sighting: %w", err)
	}

	if stored.ID, err = uuid.Parse(rawID); err != nil {
		return models.Sighting{}, fmt.Errorf("failed to parse sighting id %q: %w", rawID, err)
	}

	r.log.DebugContext(ctx, "Sighting stored", "id", stored.ID, "lat", stored.Latitude, "lng", stored.Longitude)

	return stored, nil
}

// FetchSightingsForLabelling retrieves sightings that still need a place label.
// It returns sightings that have a NULL place and fewer than MaxLabelAttempts failed attempts,
// ordered by creation date and limited to the specified count.
//
// Parameters:
// - ctx: The context for the operation, allowing for cancellation and timeout.
// - limit: The maximum number of sightings to retrieve.
func (r *Repository) FetchSightingsForLabelling(ctx context.Context, limit int) ([]models.LabelTask, error) {
	var tasks []models.LabelTask
	query := `
		SELECT sighting_id, latitude, longitude
		FROM public.sightings
		WHERE
			place IS NULL
			AND label_attempts < $1
		ORDER BY created_at ASC
		LIMIT $2;
	`

	rows, err := r.db.Query(ctx, query, MaxLabelAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlabelled sightings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID string
			task  models.LabelTask
		)
		if errScan := rows.Scan(&rawID, &task.Coords.Latitude, &task.Coords.Longitude); errScan != nil {
			return nil, fmt.Errorf("failed to scan unlabelled sighting: %w", errScan)
		}
		if task.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("failed to parse sighting id %q: %w", rawID, err)
		}
		r.log.DebugContext(ctx, "A sighting without a place label has been received.", "ID", task.ID)
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return tasks, nil
}

// UpdateSightingPlace stores the place label of a sighting and clears its last label error.
func (r *Repository) UpdateSightingPlace(ctx context.Context, id uuid.UUID, place string) error {
	query := `
		UPDATE public.sightings
		SET
			place = $1,
			label_error = NULL
		WHERE
			sighting_id = $2;
	`

	_, err := r.db.Exec(ctx, query, place, id.String())
	if err != nil {
		return fmt.Errorf("failed to update sighting place: %w", err)
	}

	return nil
}

// IncrementFailureCount increments the label attempt count of a sighting and records the error.
func (r *Repository) IncrementFailureCount(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE public.sightings
		SET
			label_attempts = label_attempts + 1,
			label_error = $1
		WHERE sighting_id = $2;
	`

	_, err := r.db.Exec(ctx, query, errMsg, id.String())
	if err != nil {
		return fmt.Errorf("failed to update label error and number of attempts: %w", err)
	}

	return nil
}
