// Package decision turns light predictions into lamp actions.
package decision

import (
	"fmt"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// Config thresholds are percentages of ambient intensity, except
// ConfidenceThreshold which is a percentage of predictor confidence.
type Config struct {
	BrightThreshold     float64
	DarkThreshold       float64
	ConfidenceThreshold float64
	FallbackSplit       float64
}

func DefaultConfig() Config {
	return Config{
		BrightThreshold:     65,
		DarkThreshold:       35,
		ConfidenceThreshold: 70,
		FallbackSplit:       50,
	}
}

// Engine is stateless apart from its configuration and safe for concurrent use.
type Engine struct {
	config Config
}

func NewEngine(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.BrightThreshold == 0 {
		cfg.BrightThreshold = defaults.BrightThreshold
	}
	if cfg.DarkThreshold == 0 {
		cfg.DarkThreshold = defaults.DarkThreshold
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if cfg.FallbackSplit == 0 {
		cfg.FallbackSplit = defaults.FallbackSplit
	}

	return &Engine{config: cfg}
}

func (e *Engine) Config() Config {
	return e.config
}

// Decide maps a prediction to a lighting decision. Rules are evaluated in
// order and the first match wins. A nil prediction yields WAIT.
func (e *Engine) Decide(p *models.PredictionRecord) *models.LightingDecision {
	var intensity, confidence float64
	if p != nil {
		intensity = p.AmbientIntensity()
		confidence = p.ConfidencePercent()
	}

	rule := e.classify(p, intensity, confidence)
	decision := e.build(rule, p, intensity, confidence)

	logger.WithFields(map[string]interface{}{
		"rule":       decision.Rule,
		"action":     decision.Action,
		"priority":   decision.Priority,
		"intensity":  intensity,
		"confidence": confidence,
	}).Debug("Decision made")

	return decision
}

// DecideFor stamps the decision with the light it applies to.
func (e *Engine) DecideFor(lightID string, p *models.PredictionRecord) *models.LightingDecision {
	decision := e.Decide(p)
	decision.LightID = lightID

	logger.WithLight(lightID).Infof("Decision: %s (%s, %s)", decision.Action, decision.Rule, decision.Priority)
	return decision
}

func (e *Engine) classify(p *models.PredictionRecord, intensity, confidence float64) models.DecisionRule {
	switch {
	case p == nil:
		return models.RuleUndetermined
	case intensity > e.config.BrightThreshold:
		return models.RuleBrightOverride
	case intensity < e.config.DarkThreshold:
		return models.RuleDarkOverride
	case confidence >= e.config.ConfidenceThreshold:
		return models.RuleAIRecommendation
	default:
		return models.RuleLowConfidenceFallback
	}
}

func (e *Engine) build(rule models.DecisionRule, p *models.PredictionRecord, intensity, confidence float64) *models.LightingDecision {
	decision := &models.LightingDecision{
		Timestamp:         time.Now(),
		Rule:              rule,
		Intensity:         intensity,
		ConfidencePercent: confidence,
	}

	switch rule {
	case models.RuleBrightOverride:
		decision.Action = models.ActionTurnOff
		decision.Priority = models.PriorityHigh
		decision.Reason = fmt.Sprintf("HIGH ambient light detected (%.1f%%) - lights OFF to save energy", intensity)

	case models.RuleDarkOverride:
		decision.Action = models.ActionTurnOn
		decision.Priority = models.PriorityHigh
		decision.Reason = fmt.Sprintf("LOW ambient light detected (%.1f%%) - lights ON for visibility", intensity)

	case models.RuleAIRecommendation:
		decision.Action = models.ActionTurnOff
		if p.LightsShouldBeOn {
			decision.Action = models.ActionTurnOn
		}
		decision.Priority = models.PriorityMedium
		decision.Reason = fmt.Sprintf("Moderate light (%.1f%%) - AI recommends %s with %.1f%% confidence",
			intensity, onOff(p.LightsShouldBeOn), confidence)

	case models.RuleLowConfidenceFallback:
		decision.Priority = models.PriorityMedium
		if intensity > e.config.FallbackSplit {
			decision.Action = models.ActionTurnOff
			decision.Reason = fmt.Sprintf("Moderate-high light (%.1f%%) - lights OFF (low AI confidence: %.1f%%)", intensity, confidence)
		} else {
			decision.Action = models.ActionTurnOn
			decision.Reason = fmt.Sprintf("Moderate-low light (%.1f%%) - lights ON (low AI confidence: %.1f%%)", intensity, confidence)
		}

	default:
		// No rule matched; hold the lamp where it is.
		decision.Rule = models.RuleUndetermined
		decision.Action = models.ActionWait
		decision.Priority = models.PriorityLow
		decision.Reason = "Insufficient data - waiting for a usable prediction"
	}

	decision.FinalStatus = decision.Action == models.ActionTurnOn
	return decision
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
