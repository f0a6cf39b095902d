package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/orchestrator"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/OldStager01/streetlight-controller/pkg/validation"
	"github.com/gin-gonic/gin"
)

type StreetlightHandler struct {
	lights  StreetlightStore
	manager LightManager
	limits  Limits
}

// NewStreetlightHandler accepts a nil manager, in which case lights are
// stored but never controlled.
func NewStreetlightHandler(lights StreetlightStore, manager LightManager, limits Limits) *StreetlightHandler {
	return &StreetlightHandler{
		lights:  lights,
		manager: manager,
		limits:  limits,
	}
}

type CreateStreetlightRequest struct {
	Name     string                    `json:"name" binding:"required,min=1,max=100"`
	Location string                    `json:"location" binding:"max=255"`
	Paused   bool                      `json:"paused"`
	Config   *models.StreetlightConfig `json:"config"`
}

type OverrideRequest struct {
	LightsOn *int `json:"lights_on" binding:"required"`
}

type StreetlightResponse struct {
	*models.Streetlight
	Running bool `json:"running"`
}

func (h *StreetlightHandler) response(light *models.Streetlight) StreetlightResponse {
	running := h.manager != nil && h.manager.IsRunning(light.ID)
	return StreetlightResponse{Streetlight: light, Running: running}
}

func (h *StreetlightHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.limits.timeout())
}

func (h *StreetlightHandler) List(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	lights, err := h.lights.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch streetlights"})
		return
	}

	response := make([]StreetlightResponse, len(lights))
	for i, light := range lights {
		response[i] = h.response(light)
	}

	c.JSON(http.StatusOK, gin.H{
		"streetlights": response,
		"count":        len(response),
	})
}

func (h *StreetlightHandler) Get(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.response(light))
}

func (h *StreetlightHandler) Create(c *gin.Context) {
	var req CreateStreetlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Location = validation.SanitizeString(req.Location)

	if err := validation.ValidateStreetlightName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateLocation(req.Location); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config != nil {
		if err := validation.ValidateChannelID(req.Config.ChannelID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if existing, err := h.lights.GetByName(ctx, req.Name); err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "streetlight with this name already exists"})
		return
	}

	light := models.NewStreetlight(req.Name, req.Location)
	light.Config = req.Config
	light.UserID = currentUserID(c)
	if req.Paused {
		light.Status = models.StreetlightStatusPaused
	}

	if err := h.lights.Create(ctx, light); err != nil {
		logger.ErrorCtxf(ctx, "Failed to create streetlight %s: %v", light.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create streetlight"})
		return
	}

	if h.manager != nil && light.IsActive() {
		if err := h.manager.StartLight(light); err != nil {
			// The light is stored; only control failed to start.
			c.JSON(http.StatusCreated, gin.H{
				"streetlight": h.response(light),
				"warning":     "streetlight created but control failed to start: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusCreated, h.response(light))
}

func (h *StreetlightHandler) Delete(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	id := c.Param("id")

	if h.manager != nil {
		_ = h.manager.StopLight(id) // not running is fine
	}

	if err := h.lights.Delete(ctx, id); err != nil {
		if errors.Is(err, queries.ErrStreetlightNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "streetlight not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete streetlight"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "streetlight deleted"})
}

func (h *StreetlightHandler) requireManager(c *gin.Context) bool {
	if h.manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "light control is not available"})
		return false
	}
	return true
}

func (h *StreetlightHandler) Start(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	if err := h.manager.StartLight(light); err != nil {
		if errors.Is(err, orchestrator.ErrPipelineExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "streetlight is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start streetlight: " + err.Error()})
		return
	}

	if err := h.lights.UpdateStatus(ctx, light.ID, models.StreetlightStatusActive); err != nil {
		logger.WithLight(light.ID).Warnf("Failed to persist active status: %v", err)
	}
	light.Status = models.StreetlightStatusActive

	c.JSON(http.StatusOK, h.response(light))
}

func (h *StreetlightHandler) Stop(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	if err := h.manager.StopLight(light.ID); err != nil {
		if errors.Is(err, orchestrator.ErrPipelineNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": "streetlight is not running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop streetlight"})
		return
	}

	if err := h.lights.UpdateStatus(ctx, light.ID, models.StreetlightStatusPaused); err != nil {
		logger.WithLight(light.ID).Warnf("Failed to persist paused status: %v", err)
	}
	light.Status = models.StreetlightStatusPaused

	c.JSON(http.StatusOK, h.response(light))
}

func (h *StreetlightHandler) Status(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	light, ok := lookupLight(ctx, c, h.lights)
	if !ok {
		return
	}

	if h.manager == nil || !h.manager.IsRunning(light.ID) {
		c.JSON(http.StatusOK, gin.H{
			"streetlight": h.response(light),
			"control":     nil,
		})
		return
	}

	status, err := h.manager.Snapshot(ctx, light.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read control status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"streetlight": h.response(light),
		"control":     status,
	})
}

// SetOverride switches the lamp by hand and holds it until cleared.
func (h *StreetlightHandler) SetOverride(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lights_on is required"})
		return
	}
	if err := validation.ValidateOverrideValue(*req.LightsOn); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	id := c.Param("id")
	on := *req.LightsOn == 1

	if err := h.manager.SetOverride(ctx, id, on); err != nil {
		if errors.Is(err, orchestrator.ErrPipelineNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": "streetlight is not running"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to switch lamp: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"light_id":  id,
		"lights_on": *req.LightsOn,
		"mode":      models.ModeManual,
		"timestamp": time.Now().UTC(),
	})
}

func (h *StreetlightHandler) ClearOverride(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}

	id := c.Param("id")
	if err := h.manager.ClearOverride(id); err != nil {
		if errors.Is(err, orchestrator.ErrPipelineNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": "streetlight is not running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear override"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"light_id": id,
		"mode":     models.ModeAuto,
	})
}
