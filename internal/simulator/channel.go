package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// Fault is an injected sensor failure mode
type Fault string

const (
	FaultNone           Fault = ""
	FaultStuckZero      Fault = "stuck_zero"
	FaultStuckMax       Fault = "stuck_max"
	FaultFrozen         Fault = "frozen"
	FaultMotionError    Fault = "motion_error"
	FaultPredictorError Fault = "predictor_error"
)

func ParseFault(name string) (Fault, error) {
	switch f := Fault(name); f {
	case FaultNone, FaultStuckZero, FaultStuckMax, FaultFrozen, FaultMotionError, FaultPredictorError:
		return f, nil
	case "none":
		return FaultNone, nil
	default:
		return FaultNone, fmt.Errorf("unknown fault %q", name)
	}
}

const (
	maxRaw        = 1023
	maxEntries    = 100
	motionInvalid = 2
)

type ChannelSimConfig struct {
	Pattern  Pattern
	Variance float64 // raw units of noise on the light sensor
	Now      func() time.Time
	Rand     *rand.Rand
}

// FeedEntry is one row of a channel feed in ThingSpeak's wire format
type FeedEntry struct {
	CreatedAt string  `json:"created_at"`
	EntryID   int     `json:"entry_id"`
	Field1    *string `json:"field1"`
	Field2    *string `json:"field2"`
	Field3    *string `json:"field3"`
}

// ChannelSim simulates one streetlight's sensor channel and lamp
type ChannelSim struct {
	id          string
	pattern     Pattern
	variance    float64
	fault       Fault
	frozenRaw   float64
	entries     []FeedEntry
	nextEntryID int
	lampOn      bool
	lastLight   float64
	lastMotion  float64
	now         func() time.Time
	rng         *rand.Rand
	mu          sync.RWMutex
}

func NewChannelSim(id string, cfg ChannelSimConfig) *ChannelSim {
	if cfg.Pattern == nil {
		cfg.Pattern = PatternDaily
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &ChannelSim{
		id:       id,
		pattern:  cfg.Pattern,
		variance: cfg.Variance,
		now:      cfg.Now,
		rng:      cfg.Rand,
	}
}

func (c *ChannelSim) ID() string {
	return c.id
}

// Sample takes a new sensor reading and appends it to the feed.
func (c *ChannelSim) Sample() FeedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	darkness := c.pattern.Darkness(now)

	light := darkness*1024 + (c.rng.Float64()*2-1)*c.variance
	light = math.Round(math.Max(0, math.Min(maxRaw, light)))

	motionChance := 0.1
	if darkness > 0.5 {
		motionChance = 0.3
	}
	motion := 0.0
	if c.rng.Float64() < motionChance {
		motion = 1
	}

	switch c.fault {
	case FaultStuckZero:
		light = 0
	case FaultStuckMax:
		light = maxRaw
	case FaultFrozen:
		light = c.frozenRaw
	case FaultMotionError:
		motion = motionInvalid
	}

	c.lastLight = light
	c.lastMotion = motion
	return c.appendLocked(now)
}

// Write records a lamp command and returns the new entry id.
func (c *ChannelSim) Write(lightsOn bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lampOn = lightsOn
	return c.appendLocked(c.now()).EntryID
}

// appendLocked stores an entry carrying the latest sensor values and lamp state.
func (c *ChannelSim) appendLocked(now time.Time) FeedEntry {
	c.nextEntryID++

	lamp := "0"
	if c.lampOn {
		lamp = "1"
	}
	entry := FeedEntry{
		CreatedAt: now.UTC().Format(time.RFC3339),
		EntryID:   c.nextEntryID,
		Field1:    stringPtr(strconv.FormatFloat(c.lastLight, 'f', -1, 64)),
		Field2:    stringPtr(strconv.FormatFloat(c.lastMotion, 'f', -1, 64)),
		Field3:    stringPtr(lamp),
	}

	c.entries = append(c.entries, entry)
	if len(c.entries) > maxEntries {
		c.entries = c.entries[len(c.entries)-maxEntries:]
	}
	return entry
}

// Feeds returns the last n entries, oldest first.
func (c *ChannelSim) Feeds(n int) []FeedEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]FeedEntry, n)
	copy(out, c.entries[len(c.entries)-n:])
	return out
}

func (c *ChannelSim) LastEntryID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextEntryID
}

func (c *ChannelSim) SetFault(fault Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fault == FaultFrozen {
		c.frozenRaw = c.lastLight
	}
	c.fault = fault
}

func (c *ChannelSim) Fault() Fault {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fault
}

func (c *ChannelSim) SetPattern(pattern Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pattern = pattern
}

func (c *ChannelSim) LampOn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lampOn
}

// Prediction mimics the external light predictor: recommended intensity
// tracks darkness, and confidence drops around dawn and dusk.
func (c *ChannelSim) Prediction() (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fault == FaultPredictorError {
		return nil, fmt.Errorf("weather service unavailable")
	}

	now := c.now()
	darkness := c.pattern.Darkness(now)
	recommended := math.Max(0, math.Min(100, darkness*100+(c.rng.Float64()*2-1)*5))
	confidence := 0.55 + math.Abs(darkness-0.5)*0.8

	return map[string]interface{}{
		"recommended_intensity": math.Round(recommended*10) / 10,
		"lights_should_be_on":   recommended >= 50,
		"confidence":            math.Round(confidence*100) / 100,
		"debug_info": map[string]interface{}{
			"pattern":   c.pattern.Name(),
			"darkness":  darkness,
			"channel":   c.id,
			"timestamp": now.Format(time.RFC3339),
		},
	}, nil
}

func stringPtr(s string) *string {
	return &s
}
