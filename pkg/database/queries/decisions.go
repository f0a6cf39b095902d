package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

type DecisionRecord struct {
	ID                int64     `json:"id"`
	LightID           string    `json:"light_id"`
	Time              time.Time `json:"time"`
	Action            string    `json:"action"`
	FinalStatus       bool      `json:"final_status"`
	Priority          string    `json:"priority"`
	Rule              string    `json:"rule"`
	Reason            string    `json:"reason"`
	Intensity         float64   `json:"intensity"`
	ConfidencePercent float64   `json:"confidence_percent"`
}

type DecisionStats struct {
	LightID             string    `json:"light_id"`
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	TotalCount          int       `json:"total_count"`
	TurnOnCount         int       `json:"turn_on_count"`
	TurnOffCount        int       `json:"turn_off_count"`
	WaitCount           int       `json:"wait_count"`
	HighPriorityCount   int       `json:"high_priority_count"`
	MediumPriorityCount int       `json:"medium_priority_count"`
	AIFollowedCount     int       `json:"ai_followed_count"`
	FallbackCount       int       `json:"fallback_count"`
	SwitchCount         int       `json:"switch_count"`
	FailedSwitchCount   int       `json:"failed_switch_count"`
}

const decisionColumns = `id, light_id, time, action, final_status, priority, rule, reason, intensity, confidence_percent`

func (r *DecisionRepository) Insert(ctx context.Context, d *models.LightingDecision) error {
	query := `
		INSERT INTO decisions
			(light_id, time, action, final_status, priority, rule, reason, intensity, confidence_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		d.LightID,
		d.Timestamp,
		d.Action,
		d.FinalStatus,
		d.Priority,
		d.Rule,
		d.Reason,
		d.Intensity,
		d.ConfidencePercent,
	)
	return err
}

func (r *DecisionRepository) GetByLight(ctx context.Context, lightID string, from, to time.Time, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE light_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time DESC
		LIMIT $4`

	return r.list(ctx, query, lightID, from, to, limit)
}

func (r *DecisionRepository) GetRecent(ctx context.Context, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + decisionColumns + ` FROM decisions ORDER BY time DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *DecisionRepository) list(ctx context.Context, query string, args ...interface{}) ([]DecisionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		err := rows.Scan(
			&d.ID, &d.LightID, &d.Time, &d.Action, &d.FinalStatus,
			&d.Priority, &d.Rule, &d.Reason, &d.Intensity, &d.ConfidencePercent,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, d)
	}

	return records, rows.Err()
}

func (r *DecisionRepository) GetStats(ctx context.Context, lightID string, from, to time.Time) (*DecisionStats, error) {
	decisionQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action = 'TURN_ON'),
			COUNT(*) FILTER (WHERE action = 'TURN_OFF'),
			COUNT(*) FILTER (WHERE action = 'WAIT'),
			COUNT(*) FILTER (WHERE priority = 'high'),
			COUNT(*) FILTER (WHERE priority = 'medium'),
			COUNT(*) FILTER (WHERE rule = 'ai_recommendation'),
			COUNT(*) FILTER (WHERE rule = 'low_confidence_fallback')
		FROM decisions
		WHERE light_id = $1 AND time >= $2 AND time <= $3`

	stats := DecisionStats{LightID: lightID, From: from, To: to}
	err := r.db.QueryRowContext(ctx, decisionQuery, lightID, from, to).Scan(
		&stats.TotalCount, &stats.TurnOnCount, &stats.TurnOffCount, &stats.WaitCount,
		&stats.HighPriorityCount, &stats.MediumPriorityCount,
		&stats.AIFollowedCount, &stats.FallbackCount,
	)
	if err != nil {
		return nil, err
	}

	actuationQuery := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM actuation_events
		WHERE light_id = $1 AND time >= $2 AND time <= $3`

	err = r.db.QueryRowContext(ctx, actuationQuery, lightID, from, to).Scan(
		&stats.SwitchCount, &stats.FailedSwitchCount,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *DecisionRepository) InsertActuation(ctx context.Context, event *models.ActuationEvent) error {
	query := `
		INSERT INTO actuation_events
			(light_id, time, lights_on, source, reason, priority, entry_id, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		event.LightID,
		event.Timestamp,
		event.LightsOn,
		event.Source,
		event.Reason,
		event.Priority,
		event.EntryID,
		event.Status,
		event.Error,
	).Scan(&event.ID)
}

func (r *DecisionRepository) GetActuations(ctx context.Context, lightID string, limit int) ([]models.ActuationEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, light_id, time, lights_on, source, reason, priority, entry_id, status, error
		FROM actuation_events
		WHERE light_id = $1
		ORDER BY time DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, lightID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ActuationEvent
	for rows.Next() {
		var e models.ActuationEvent
		var source, priority, status string
		err := rows.Scan(&e.ID, &e.LightID, &e.Timestamp, &e.LightsOn, &source, &e.Reason, &priority, &e.EntryID, &status, &e.Error)
		if err != nil {
			return nil, err
		}
		e.Source = models.ActuationSource(source)
		e.Priority = models.Priority(priority)
		e.Status = models.ActuationStatus(status)
		events = append(events, e)
	}

	return events, rows.Err()
}
