package actuator

import (
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// StateTracker records the last state commanded to each lamp.
type StateTracker struct {
	lamps     map[string]*models.LampState
	mu        sync.RWMutex
	callbacks StateCallbacks
}

type StateCallbacks struct {
	OnSwitched func(state models.LampState)
}

func NewStateTracker(callbacks StateCallbacks) *StateTracker {
	return &StateTracker{
		lamps:     make(map[string]*models.LampState),
		callbacks: callbacks,
	}
}

// Apply records a commanded state and reports whether it differs from the
// previous one. A lamp seen for the first time counts as changed.
func (t *StateTracker) Apply(lightID string, on bool) (models.LampState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lamp, exists := t.lamps[lightID]
	if !exists {
		lamp = &models.LampState{LightID: lightID}
		t.lamps[lightID] = lamp
	}

	changed := !exists || lamp.On != on
	if changed {
		now := time.Now()
		lamp.On = on
		lamp.LastChanged = &now
		lamp.Switches++

		if t.callbacks.OnSwitched != nil {
			go t.callbacks.OnSwitched(*lamp)
		}

		logger.WithLight(lightID).Infof("Lamp switched %s", onOffLabel(on))
	}

	return *lamp, changed
}

func (t *StateTracker) Get(lightID string) (*models.LampState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lamp, exists := t.lamps[lightID]
	if !exists {
		return nil, false
	}

	lampCopy := *lamp
	return &lampCopy, true
}

func (t *StateTracker) All() []models.LampState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lamps := make([]models.LampState, 0, len(t.lamps))
	for _, lamp := range t.lamps {
		lamps = append(lamps, *lamp)
	}
	return lamps
}

func (t *StateTracker) Remove(lightID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lamps, lightID)
}

// lookup fails with ErrUnknownLight until the lamp has been commanded once.
func (t *StateTracker) lookup(lightID string) (*models.LampState, error) {
	lamp, ok := t.Get(lightID)
	if !ok {
		return nil, ErrUnknownLight
	}
	return lamp, nil
}

func onOffLabel(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
