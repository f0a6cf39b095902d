package handlers

import (
	"net/http"

	"github.com/OldStager01/streetlight-controller/internal/intensity"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/gin-gonic/gin"
)

// Decider is the lighting decision engine
type Decider interface {
	Decide(p *models.PredictionRecord) *models.LightingDecision
}

// ControlHandler exposes the decision engine and intensity converter
// directly, without touching any lamp.
type ControlHandler struct {
	decider Decider
}

func NewControlHandler(decider Decider) *ControlHandler {
	return &ControlHandler{decider: decider}
}

type DecideRequest struct {
	RecommendedIntensity *float64 `json:"recommended_intensity" binding:"required"`
	LightsShouldBeOn     bool     `json:"lights_should_be_on"`
	Confidence           *float64 `json:"confidence" binding:"required"`
}

type IntensityRequest struct {
	Raw       *float64 `json:"raw" binding:"required"`
	Connected *bool    `json:"connected"`
	Motion    *float64 `json:"motion"`
}

type IntensityResponse struct {
	Raw          float64 `json:"raw"`
	Connected    bool    `json:"connected"`
	Intensity    int     `json:"intensity_percent"`
	Description  string  `json:"description"`
	MotionStatus string  `json:"motion_status,omitempty"`
}

func (h *ControlHandler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recommended_intensity and confidence are required"})
		return
	}

	prediction := models.NewPredictionRecord(*req.RecommendedIntensity, req.LightsShouldBeOn, *req.Confidence)
	if err := prediction.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.decider.Decide(prediction))
}

func (h *ControlHandler) Intensity(c *gin.Context) {
	var req IntensityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw is required"})
		return
	}

	connected := true
	if req.Connected != nil {
		connected = *req.Connected
	}

	pct := intensity.Percent(*req.Raw, connected)
	resp := IntensityResponse{
		Raw:         *req.Raw,
		Connected:   connected,
		Intensity:   pct,
		Description: intensity.Describe(pct, connected),
	}
	if req.Motion != nil {
		resp.MotionStatus = intensity.MotionStatus(*req.Motion, connected)
	}

	c.JSON(http.StatusOK, resp)
}
