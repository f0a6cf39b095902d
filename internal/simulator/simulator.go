package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
)

type Config struct {
	Port           int
	DefaultChannel string
	WriteAPIKey    string // when set, writes with any other key are refused
	Pattern        string
	Variance       float64
	SampleInterval time.Duration
}

// Simulator serves ThingSpeak style channel feeds, the lamp write endpoint
// and the light predictor over HTTP.
type Simulator struct {
	config     Config
	channels   map[string]*ChannelSim
	mu         sync.RWMutex
	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = "1"
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "daily"
	}
	if cfg.Variance == 0 {
		cfg.Variance = 20
	}
	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = 15 * time.Second
	}

	return &Simulator{
		config:   cfg,
		channels: make(map[string]*ChannelSim),
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Handler returns the simulator routes without starting a listener.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/channels", cors(s.listChannelsHandler))
	mux.HandleFunc("/channels/", cors(s.channelHandler))
	mux.HandleFunc("/update", cors(s.updateHandler))
	mux.HandleFunc("/predict/", cors(s.predictHandler))
	mux.HandleFunc("/faults", cors(s.faultHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))

	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.GetOrCreateChannel(s.config.DefaultChannel)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.sampleLoop(ctx)

	logger.Infof("Simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) sampleLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SampleAll()
		}
	}
}

// SampleAll takes a fresh reading on every channel.
func (s *Simulator) SampleAll() {
	s.mu.RLock()
	channels := make([]*ChannelSim, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	s.mu.RUnlock()

	for _, ch := range channels {
		ch.Sample()
	}
}

func (s *Simulator) GetOrCreateChannel(channelID string) *ChannelSim {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, exists := s.channels[channelID]; exists {
		return ch
	}

	ch := NewChannelSim(channelID, ChannelSimConfig{
		Pattern:  ParsePattern(s.config.Pattern),
		Variance: s.config.Variance,
	})
	ch.Sample()
	s.channels[channelID] = ch

	logger.Infof("Created new simulated channel: %s", channelID)
	return ch
}

func (s *Simulator) GetChannel(channelID string) (*ChannelSim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, exists := s.channels[channelID]
	return ch, exists
}

// HTTP Handlers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "streetlight-simulator",
	})
}

func (s *Simulator) listChannelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	channels := make([]map[string]interface{}, 0, len(s.channels))
	for id, ch := range s.channels {
		channels = append(channels, map[string]interface{}{
			"id":            id,
			"fault":         string(ch.Fault()),
			"lamp_on":       ch.LampOn(),
			"last_entry_id": ch.LastEntryID(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(channels, func(i, j int) bool {
		return channels[i]["id"].(string) < channels[j]["id"].(string)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
		"count":    len(channels),
	})
}

type feedResponse struct {
	Channel struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		LastEntryID int    `json:"last_entry_id"`
	} `json:"channel"`
	Feeds []FeedEntry `json:"feeds"`
}

// channelHandler serves /channels/{id}/feeds.json and DELETE /channels/{id}
func (s *Simulator) channelHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(r.URL.Path[len("/channels/"):], "/")
	if rest == "" {
		http.Error(w, "channel ID required", http.StatusBadRequest)
		return
	}
	parts := strings.Split(rest, "/")
	channelID := parts[0]

	switch {
	case r.Method == http.MethodDelete && len(parts) == 1:
		s.deleteChannelHandler(w, channelID)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "feeds.json":
		s.feedsHandler(w, r, channelID)
	case len(parts) > 2 || (len(parts) == 2 && parts[1] != "feeds.json"):
		http.NotFound(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Simulator) feedsHandler(w http.ResponseWriter, r *http.Request, channelID string) {
	results := 1
	if v := r.URL.Query().Get("results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid results", http.StatusBadRequest)
			return
		}
		results = n
	}

	ch := s.GetOrCreateChannel(channelID)

	var resp feedResponse
	resp.Channel.ID, _ = strconv.Atoi(channelID)
	resp.Channel.Name = "streetlight-" + channelID
	resp.Channel.LastEntryID = ch.LastEntryID()
	resp.Feeds = ch.Feeds(results)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Simulator) deleteChannelHandler(w http.ResponseWriter, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.channels[channelID]; !exists {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	delete(s.channels, channelID)
	logger.Infof("Deleted channel %s", channelID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "channel deleted"})
}

// updateHandler accepts a lamp command in field3 and answers with the new
// entry id, or "0" when the write is refused.
func (s *Simulator) updateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")

	if s.config.WriteAPIKey != "" && r.Form.Get("api_key") != s.config.WriteAPIKey {
		fmt.Fprint(w, "0")
		return
	}

	var on bool
	switch r.Form.Get("field3") {
	case "1":
		on = true
	case "0":
		on = false
	default:
		fmt.Fprint(w, "0")
		return
	}

	channelID := r.Form.Get("channel")
	if channelID == "" {
		channelID = s.config.DefaultChannel
	}

	entryID := s.GetOrCreateChannel(channelID).Write(on)
	state := "OFF"
	if on {
		state = "ON"
	}
	logger.Infof("Channel %s lamp set %s (entry %d)", channelID, state, entryID)

	fmt.Fprint(w, strconv.Itoa(entryID))
}

func (s *Simulator) predictHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	channelID := s.config.DefaultChannel
	if id := r.URL.Query().Get("light_id"); id != "" {
		if _, ok := s.GetChannel(id); ok {
			channelID = id
		}
	}

	prediction, err := s.GetOrCreateChannel(channelID).Prediction()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

type FaultRequest struct {
	Channel string `json:"channel"`
	Fault   string `json:"fault"` // "stuck_zero", "stuck_max", "frozen", "motion_error", "predictor_error", "none"
}

func (s *Simulator) faultHandler(w http.ResponseWriter, r *http.Request) {
	var req FaultRequest

	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	case http.MethodDelete:
		req.Channel = r.URL.Query().Get("channel")
		req.Fault = "none"
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.Channel == "" {
		req.Channel = s.config.DefaultChannel
	}

	fault, err := ParseFault(req.Fault)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.GetOrCreateChannel(req.Channel).SetFault(fault)
	logger.Infof("Set fault %q on channel %s", fault, req.Channel)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "fault set",
		"channel": req.Channel,
		"fault":   string(fault),
	})
}

type PatternRequest struct {
	Channel string `json:"channel"`
	Pattern string `json:"pattern"` // "daily", "day", "night", "dusk", "random", "fast_cycle"
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Channel == "" {
		req.Channel = s.config.DefaultChannel
	}

	pattern := ParsePattern(req.Pattern)
	s.GetOrCreateChannel(req.Channel).SetPattern(pattern)

	logger.Infof("Set pattern %s on channel %s", pattern.Name(), req.Channel)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "pattern set",
		"channel": req.Channel,
		"pattern": pattern.Name(),
	})
}
