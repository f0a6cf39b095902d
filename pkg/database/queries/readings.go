package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// ReadingRecord is a persisted sensor snapshot
type ReadingRecord struct {
	ID           int64     `json:"id"`
	LightID      string    `json:"light_id"`
	Time         time.Time `json:"time"`
	EntryID      int       `json:"entry_id"`
	AmbientLight float64   `json:"ambient_light_sensor"`
	Motion       float64   `json:"motion_sensor"`
	IntensityPct int       `json:"intensity_percent"`
	LightBand    string    `json:"light_band"`
	LightHealth  string    `json:"light_health"`
	MotionHealth string    `json:"motion_health"`
}

func (r *ReadingRepository) Insert(ctx context.Context, snapshot *models.SensorSnapshot) error {
	query := `
		INSERT INTO sensor_readings
			(light_id, time, entry_id, ambient_light, motion, intensity_pct, light_band, light_health, motion_health)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	reading := snapshot.Reading
	_, err := r.db.ExecContext(ctx, query,
		reading.LightID,
		reading.Timestamp,
		reading.EntryID,
		reading.AmbientLight,
		reading.Motion,
		snapshot.IntensityPct,
		snapshot.LightBand,
		snapshot.Health.Light,
		snapshot.Health.Motion,
	)
	return err
}

func (r *ReadingRepository) GetByLight(ctx context.Context, lightID string, from, to time.Time, limit int) ([]ReadingRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, light_id, time, entry_id, ambient_light, motion, intensity_pct, light_band, light_health, motion_health
		FROM sensor_readings
		WHERE light_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, lightID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ReadingRecord
	for rows.Next() {
		var rec ReadingRecord
		err := rows.Scan(
			&rec.ID, &rec.LightID, &rec.Time, &rec.EntryID, &rec.AmbientLight, &rec.Motion,
			&rec.IntensityPct, &rec.LightBand, &rec.LightHealth, &rec.MotionHealth,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteOlderThan prunes readings past the retention window.
func (r *ReadingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sensor_readings WHERE time < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
