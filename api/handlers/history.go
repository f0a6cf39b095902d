package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves persisted readings, decisions and actuations
type HistoryHandler struct {
	lights    StreetlightStore
	readings  ReadingStore
	decisions DecisionStore
	limits    Limits
}

func NewHistoryHandler(lights StreetlightStore, readings ReadingStore, decisions DecisionStore, limits Limits) *HistoryHandler {
	return &HistoryHandler{
		lights:    lights,
		readings:  readings,
		decisions: decisions,
		limits:    limits,
	}
}

func (h *HistoryHandler) GetReadings(c *gin.Context) {
	ctx := c.Request.Context()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	from, to := parseTimeRange(c)
	limit := h.limits.parseLimit(c, h.limits.defaultLimit())

	readings, err := h.readings.GetByLight(ctx, light.ID, from, to, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch readings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"light_id": light.ID,
		"from":     from,
		"to":       to,
		"data":     readings,
		"count":    len(readings),
	})
}

func (h *HistoryHandler) GetDecisions(c *gin.Context) {
	ctx := c.Request.Context()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	from, to := parseTimeRange(c)
	limit := h.limits.parseLimit(c, 50)

	decisions, err := h.decisions.GetByLight(ctx, light.ID, from, to, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"light_id": light.ID,
		"from":     from,
		"to":       to,
		"data":     decisions,
		"count":    len(decisions),
	})
}

func (h *HistoryHandler) GetDecisionStats(c *gin.Context) {
	ctx := c.Request.Context()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	from, to := parseTimeRange(c)

	stats, err := h.decisions.GetStats(ctx, light.ID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decision stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *HistoryHandler) GetActuations(c *gin.Context) {
	ctx := c.Request.Context()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	limit := h.limits.parseLimit(c, 50)

	actuations, err := h.decisions.GetActuations(ctx, light.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch actuations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"light_id": light.ID,
		"data":     actuations,
		"count":    len(actuations),
	})
}

func (h *HistoryHandler) GetRecentDecisions(c *gin.Context) {
	limit := h.limits.parseLimit(c, 20)

	decisions, err := h.decisions.GetRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recent decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  decisions,
		"count": len(decisions),
	})
}
