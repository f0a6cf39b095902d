package simulator

import (
	"math"
	"math/rand"
	"time"
)

// Pattern gives the darkness of the sky at a moment, from 0 (full sun) to 1 (night).
type Pattern interface {
	Darkness(t time.Time) float64
	Name() string
}

var (
	PatternDaily  Pattern = &DailyPattern{}
	PatternRandom Pattern = &RandomPattern{}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "daily":
		return PatternDaily
	case "random":
		return PatternRandom
	case "day":
		return &SteadyPattern{Level: 0.1}
	case "night":
		return &SteadyPattern{Level: 0.95}
	case "dusk":
		return &SteadyPattern{Level: 0.5}
	case "fast_cycle":
		return &SineWavePattern{Period: 10 * time.Minute}
	default:
		return PatternDaily
	}
}

// SteadyPattern - constant light level
type SteadyPattern struct {
	Level float64
}

func (p *SteadyPattern) Darkness(time.Time) float64 {
	return clamp01(p.Level)
}

func (p *SteadyPattern) Name() string {
	switch {
	case p.Level >= 0.9:
		return "night"
	case p.Level <= 0.2:
		return "day"
	default:
		return "steady"
	}
}

// DailyPattern follows the local clock: dark overnight, brightest at noon,
// with ramps at dawn and dusk.
type DailyPattern struct{}

func (p *DailyPattern) Darkness(t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60

	switch {
	case hour < 5 || hour >= 20:
		return 0.95
	case hour < 7:
		// Dawn
		return 0.95 - (hour-5)/2*0.75
	case hour < 18:
		// Daylight, brightest at 12:30
		return 0.1 + math.Abs(hour-12.5)/5.5*0.1
	default:
		// Dusk
		return 0.2 + (hour-18)/2*0.75
	}
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// RandomPattern - passing clouds and flicker
type RandomPattern struct{}

func (p *RandomPattern) Darkness(time.Time) float64 {
	return rand.Float64()
}

func (p *RandomPattern) Name() string {
	return "random"
}

// SineWavePattern compresses a full day into Period
type SineWavePattern struct {
	Period time.Duration
}

func (p *SineWavePattern) Darkness(t time.Time) float64 {
	period := p.Period
	if period == 0 {
		period = 10 * time.Minute
	}

	phase := float64(t.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds()) * 2 * math.Pi
	return clamp01(0.5 + 0.5*math.Cos(phase))
}

func (p *SineWavePattern) Name() string {
	return "fast_cycle"
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
