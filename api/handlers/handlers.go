package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/OldStager01/streetlight-controller/api/middleware"
	"github.com/OldStager01/streetlight-controller/internal/orchestrator"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/gin-gonic/gin"
)

// Storage interfaces, satisfied by the repositories in pkg/database/queries.

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type StreetlightStore interface {
	GetAll(ctx context.Context) ([]*models.Streetlight, error)
	GetByID(ctx context.Context, id string) (*models.Streetlight, error)
	GetByName(ctx context.Context, name string) (*models.Streetlight, error)
	Create(ctx context.Context, light *models.Streetlight) error
	UpdateStatus(ctx context.Context, id string, status models.StreetlightStatus) error
	Delete(ctx context.Context, id string) error
}

type ReadingStore interface {
	GetByLight(ctx context.Context, lightID string, from, to time.Time, limit int) ([]queries.ReadingRecord, error)
}

type DecisionStore interface {
	GetByLight(ctx context.Context, lightID string, from, to time.Time, limit int) ([]queries.DecisionRecord, error)
	GetRecent(ctx context.Context, limit int) ([]queries.DecisionRecord, error)
	GetStats(ctx context.Context, lightID string, from, to time.Time) (*queries.DecisionStats, error)
	GetActuations(ctx context.Context, lightID string, limit int) ([]models.ActuationEvent, error)
}

// LightManager controls the running pipelines
type LightManager interface {
	StartLight(light *models.Streetlight) error
	StopLight(lightID string) error
	IsRunning(lightID string) bool
	Snapshot(ctx context.Context, lightID string) (*orchestrator.Status, error)
	SetOverride(ctx context.Context, lightID string, on bool) error
	ClearOverride(lightID string) error
}

// Limits bounds list queries
type Limits struct {
	Default        int
	Max            int
	RequestTimeout time.Duration
}

func (l Limits) defaultLimit() int {
	if l.Default > 0 {
		return l.Default
	}
	return 100
}

func (l Limits) maxLimit() int {
	if l.Max > 0 {
		return l.Max
	}
	return 1000
}

func (l Limits) timeout() time.Duration {
	if l.RequestTimeout > 0 {
		return l.RequestTimeout
	}
	return 5 * time.Second
}

func (l Limits) parseLimit(c *gin.Context, defaultLimit int) int {
	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > l.maxLimit() {
		limit = l.maxLimit()
	}
	return limit
}

// parseTimeRange reads from/to as RFC3339, or a relative range such as
// 30m, 6h or 7d ending now. The default is the last hour.
func parseTimeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-1 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsed
		}
	}

	if toStr := c.Query("to"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsed
		}
	}

	if rangeStr := c.Query("range"); rangeStr != "" {
		from = to.Add(-parseDuration(rangeStr))
	}

	return from, to
}

func parseDuration(s string) time.Duration {
	if len(s) < 2 {
		return time.Hour
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return time.Hour
	}

	switch s[len(s)-1] {
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Hour
	}
}

func currentUserID(c *gin.Context) *int {
	if id, ok := middleware.GetUserID(c); ok {
		return &id
	}
	return nil
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// lookupLight loads the streetlight named by the :id param, writing the
// error response itself when it cannot.
func lookupLight(ctx context.Context, c *gin.Context, store StreetlightStore) (*models.Streetlight, bool) {
	light, err := store.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == queries.ErrStreetlightNotFound {
			abortJSON(c, http.StatusNotFound, "streetlight not found")
			return nil, false
		}
		abortJSON(c, http.StatusInternalServerError, "failed to fetch streetlight")
		return nil, false
	}
	return light, true
}
