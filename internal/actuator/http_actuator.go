package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// HTTPActuator writes the lamp command into field3 of a ThingSpeak style
// channel. The device polls that field.
type HTTPActuator struct {
	client      *http.Client
	endpoint    string
	writeAPIKey string
	tracker     *StateTracker
}

type HTTPActuatorConfig struct {
	Endpoint    string
	WriteAPIKey string
	Timeout     time.Duration
	Callbacks   StateCallbacks
}

func NewHTTPActuator(cfg HTTPActuatorConfig) *HTTPActuator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPActuator{
		client:      &http.Client{Timeout: timeout},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		writeAPIKey: cfg.WriteAPIKey,
		tracker:     NewStateTracker(cfg.Callbacks),
	}
}

func (a *HTTPActuator) SetLight(ctx context.Context, lightID string, on bool) (*ActuationResult, error) {
	form := url.Values{}
	form.Set("api_key", a.writeAPIKey)
	form.Set("field3", strconv.Itoa(lightsOnValue(on)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/update", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrActuationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrActuationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrActuationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The channel answers with the new entry id, or 0 when the write was
	// refused (bad key or rate limit).
	entryID := strings.TrimSpace(string(body))
	if entryID == "" || entryID == "0" {
		return nil, ErrWriteRejected
	}

	_, changed := a.tracker.Apply(lightID, on)
	logger.WithLight(lightID).Infof("Lamp command %s accepted as entry %s", onOffLabel(on), entryID)

	return &ActuationResult{
		LightID:   lightID,
		LightsOn:  on,
		Changed:   changed,
		EntryID:   entryID,
		Timestamp: time.Now(),
	}, nil
}

func (a *HTTPActuator) State(ctx context.Context, lightID string) (*models.LampState, error) {
	return a.tracker.lookup(lightID)
}

func (a *HTTPActuator) Tracker() *StateTracker {
	return a.tracker
}

func (a *HTTPActuator) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
