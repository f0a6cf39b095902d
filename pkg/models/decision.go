package models

import "time"

type LightingAction string

const (
	ActionTurnOn  LightingAction = "TURN_ON"
	ActionTurnOff LightingAction = "TURN_OFF"
	ActionWait    LightingAction = "WAIT"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DecisionRule names the rule of the decision engine that produced a decision
type DecisionRule string

const (
	RuleBrightOverride        DecisionRule = "bright_override"
	RuleDarkOverride          DecisionRule = "dark_override"
	RuleAIRecommendation      DecisionRule = "ai_recommendation"
	RuleLowConfidenceFallback DecisionRule = "low_confidence_fallback"
	RuleUndetermined          DecisionRule = "undetermined"
)

// LightingDecision represents an actuation decision made by the decision engine
type LightingDecision struct {
	LightID           string         `json:"light_id,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
	Action            LightingAction `json:"action"`
	FinalStatus       bool           `json:"final_status"`
	Reason            string         `json:"reason"`
	Priority          Priority       `json:"priority"`
	Rule              DecisionRule   `json:"rule"`
	Intensity         float64        `json:"intensity"`
	ConfidencePercent float64        `json:"confidence_percent"`
}

func (d *LightingDecision) IsOverride() bool {
	return d.Rule == RuleBrightOverride || d.Rule == RuleDarkOverride
}

// ShouldActuate reports whether the decision must be applied to a lamp currently in lampOn state
func (d *LightingDecision) ShouldActuate(lampOn bool) bool {
	if d.Action == ActionWait {
		return false
	}
	return d.FinalStatus != lampOn
}
