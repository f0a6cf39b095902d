package health

import (
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// TransitionTracker remembers the last reported status per channel so callers
// can react only when a channel flips.
type TransitionTracker struct {
	last              map[models.Channel]models.HealthStatus
	disconnectedSince map[models.Channel]time.Time
	mu                sync.RWMutex
}

func NewTransitionTracker() *TransitionTracker {
	return &TransitionTracker{
		last:              make(map[models.Channel]models.HealthStatus),
		disconnectedSince: make(map[models.Channel]time.Time),
	}
}

// Update records the latest health and returns the channels whose status
// changed. The first observation of a channel counts as a change only when it
// is disconnected.
func (t *TransitionTracker) Update(reading *models.SensorReading, health models.SensorHealth) []models.HealthChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var changes []models.HealthChange

	for _, s := range reading.Samples() {
		current := health.Light
		if s.Channel == models.ChannelMotion {
			current = health.Motion
		}

		previous, seen := t.last[s.Channel]
		if !seen {
			previous = models.HealthLive
		}
		t.last[s.Channel] = current

		if current.IsLive() {
			delete(t.disconnectedSince, s.Channel)
		} else if _, exists := t.disconnectedSince[s.Channel]; !exists {
			t.disconnectedSince[s.Channel] = now
		}

		if previous != current {
			changes = append(changes, models.HealthChange{
				Channel:  s.Channel,
				Previous: previous,
				Current:  current,
				Value:    s.Value,
			})
		}
	}

	return changes
}

func (t *TransitionTracker) DisconnectedFor(channel models.Channel) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if since, exists := t.disconnectedSince[channel]; exists {
		return time.Since(since)
	}
	return 0
}

func (t *TransitionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = make(map[models.Channel]models.HealthStatus)
	t.disconnectedSince = make(map[models.Channel]time.Time)
}
