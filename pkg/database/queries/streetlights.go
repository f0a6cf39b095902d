package queries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

var ErrStreetlightNotFound = errors.New("streetlight not found")

type StreetlightRepository struct {
	db *sql.DB
}

func NewStreetlightRepository(db *sql.DB) *StreetlightRepository {
	return &StreetlightRepository{db: db}
}

const streetlightColumns = `id, name, location, status, config, user_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *StreetlightRepository) GetAll(ctx context.Context) ([]*models.Streetlight, error) {
	query := `SELECT ` + streetlightColumns + ` FROM streetlights ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *StreetlightRepository) GetActive(ctx context.Context) ([]*models.Streetlight, error) {
	query := `SELECT ` + streetlightColumns + ` FROM streetlights WHERE status = 'active' ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *StreetlightRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Streetlight, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lights []*models.Streetlight
	for rows.Next() {
		light, err := scanStreetlight(rows)
		if err != nil {
			return nil, err
		}
		lights = append(lights, light)
	}

	return lights, rows.Err()
}

func (r *StreetlightRepository) GetByID(ctx context.Context, id string) (*models.Streetlight, error) {
	query := `SELECT ` + streetlightColumns + ` FROM streetlights WHERE id = $1`

	light, err := scanStreetlight(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStreetlightNotFound
	}
	return light, err
}

func (r *StreetlightRepository) GetByName(ctx context.Context, name string) (*models.Streetlight, error) {
	query := `SELECT ` + streetlightColumns + ` FROM streetlights WHERE name = $1`

	light, err := scanStreetlight(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStreetlightNotFound
	}
	return light, err
}

func (r *StreetlightRepository) Create(ctx context.Context, light *models.Streetlight) error {
	configJSON, err := light.ConfigJSON()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO streetlights (id, name, location, status, config, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		light.ID,
		light.Name,
		light.Location,
		light.Status,
		configJSON,
		light.UserID,
	).Scan(&light.CreatedAt, &light.UpdatedAt)
}

func (r *StreetlightRepository) UpdateStatus(ctx context.Context, id string, status models.StreetlightStatus) error {
	query := `UPDATE streetlights SET status = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, status)
}

func (r *StreetlightRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM streetlights WHERE id = $1`, id)
}

func (r *StreetlightRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStreetlightNotFound
	}
	return nil
}

func scanStreetlight(row rowScanner) (*models.Streetlight, error) {
	var light models.Streetlight
	var configJSON []byte
	var status string
	var userID sql.NullInt64

	err := row.Scan(
		&light.ID,
		&light.Name,
		&light.Location,
		&status,
		&configJSON,
		&userID,
		&light.CreatedAt,
		&light.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	light.Status = models.StreetlightStatus(status)
	if userID.Valid {
		id := int(userID.Int64)
		light.UserID = &id
	}
	if err := light.ParseConfig(configJSON); err != nil {
		return nil, err
	}

	return &light, nil
}
