package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/auth"
	"github.com/OldStager01/streetlight-controller/internal/decision"
	"github.com/OldStager01/streetlight-controller/internal/orchestrator"
	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	user *models.User
}

func (s stubUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, queries.ErrUserNotFound
	}
	return s.user, nil
}

type stubLights struct{}

func (stubLights) GetAll(context.Context) ([]*models.Streetlight, error) {
	return []*models.Streetlight{models.NewStreetlight("lamp-1", "")}, nil
}
func (stubLights) GetByID(context.Context, string) (*models.Streetlight, error) {
	return nil, queries.ErrStreetlightNotFound
}
func (stubLights) GetByName(context.Context, string) (*models.Streetlight, error) {
	return nil, queries.ErrStreetlightNotFound
}
func (stubLights) Create(context.Context, *models.Streetlight) error { return nil }
func (stubLights) UpdateStatus(context.Context, string, models.StreetlightStatus) error {
	return nil
}
func (stubLights) Delete(context.Context, string) error { return queries.ErrStreetlightNotFound }

type stubController struct {
	events       chan *models.Event
	unsubscribed chan struct{}
}

func (c *stubController) StartLight(*models.Streetlight) error { return nil }
func (c *stubController) StopLight(string) error               { return orchestrator.ErrPipelineNotFound }
func (c *stubController) IsRunning(string) bool                { return false }
func (c *stubController) Snapshot(context.Context, string) (*orchestrator.Status, error) {
	return nil, orchestrator.ErrPipelineNotFound
}
func (c *stubController) SetOverride(context.Context, string, bool) error {
	return orchestrator.ErrPipelineNotFound
}
func (c *stubController) ClearOverride(string) error { return orchestrator.ErrPipelineNotFound }
func (c *stubController) SubscribeAllEvents() <-chan *models.Event {
	return c.events
}
func (c *stubController) Unsubscribe(<-chan *models.Event) {
	close(c.unsubscribed)
}

func newTestServer(t *testing.T) (*Server, *stubController) {
	t.Helper()

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)

	controller := &stubController{
		events:       make(chan *models.Event, 1),
		unsubscribed: make(chan struct{}),
	}

	stores := Stores{
		Users:        stubUsers{user: &models.User{ID: 1, Username: "operator", PasswordHash: hash}},
		Streetlights: stubLights{},
	}

	srv := NewServer(config.APIConfig{
		JWTSecret:   "server-test-secret",
		JWTDuration: time.Hour,
		CookieName:  "auth_token",
		RateLimit:   1000,
	}, nil, stores, controller, decision.NewEngine(decision.DefaultConfig()))

	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv, controller
}

func serve(srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestServer_PublicRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = serve(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/streetlights", "/decisions/recent"} {
		w := serve(srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(srv, http.MethodPost, "/decide", "", nil).Code)
}

func TestServer_LoginThenDecide(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "operator",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, 3600, login.ExpiresIn)

	w = serve(srv, http.MethodPost, "/decide", login.Token, map[string]interface{}{
		"recommended_intensity": 90,
		"lights_should_be_on":   true,
		"confidence":            0.95,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var d models.LightingDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, models.ActionTurnOn, d.Action)
	assert.Equal(t, models.PriorityHigh, d.Priority)

	w = serve(srv, http.MethodGet, "/streetlights", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lamp-1")

	w = serve(srv, http.MethodPost, "/streetlights/abc/override", login.Token, map[string]int{"lights_on": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_ShutdownReleasesSubscription(t *testing.T) {
	srv, controller := newTestServer(t)

	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case <-controller.unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("event subscription was not released")
	}
}

func TestServer_ActuationRoutesAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "operator",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	for i := 0; i < actuationRateLimit; i++ {
		w = serve(srv, http.MethodPost, "/streetlights/abc/override", login.Token, map[string]int{"lights_on": 0})
		require.Equal(t, http.StatusConflict, w.Code)
	}

	w = serve(srv, http.MethodPost, "/streetlights/abc/override", login.Token, map[string]int{"lights_on": 0})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Other routes keep their own budget.
	w = serve(srv, http.MethodGet, "/streetlights", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
