package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

const DefaultLogResults = 20

// HTTPCollector reads a ThingSpeak style channel feed. field1 carries the raw
// ambient light reading and field2 the motion flag.
type HTTPCollector struct {
	client         *http.Client
	endpoint       string
	readAPIKey     string
	defaultChannel string
	channels       map[string]string
	mu             sync.RWMutex
}

type HTTPCollectorConfig struct {
	Endpoint       string
	ReadAPIKey     string
	DefaultChannel string
	Timeout        time.Duration
}

func NewHTTPCollector(cfg HTTPCollectorConfig) *HTTPCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPCollector{
		client:         &http.Client{Timeout: timeout},
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		readAPIKey:     cfg.ReadAPIKey,
		defaultChannel: cfg.DefaultChannel,
		channels:       make(map[string]string),
	}
}

type feedResponse struct {
	Channel struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		LastEntryID int    `json:"last_entry_id"`
	} `json:"channel"`
	Feeds []feedEntry `json:"feeds"`
}

type feedEntry struct {
	CreatedAt string      `json:"created_at"`
	EntryID   int         `json:"entry_id"`
	Field1    interface{} `json:"field1"`
	Field2    interface{} `json:"field2"`
}

func (c *HTTPCollector) RegisterChannel(lightID, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[lightID] = channelID
}

func (c *HTTPCollector) channelFor(lightID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ch, ok := c.channels[lightID]; ok && ch != "" {
		return ch
	}
	if c.defaultChannel != "" {
		return c.defaultChannel
	}
	return lightID
}

func (c *HTTPCollector) Collect(ctx context.Context, lightID string) (*models.SensorReading, error) {
	readings, err := c.fetch(ctx, lightID, 1)
	if err != nil {
		return nil, err
	}

	reading := readings[len(readings)-1]
	logger.WithLight(lightID).Debugf("Collected entry %d: light=%.0f motion=%.0f",
		reading.EntryID, reading.AmbientLight, reading.Motion)

	return &reading, nil
}

// CollectLogs returns up to results recent entries, latest first.
func (c *HTTPCollector) CollectLogs(ctx context.Context, lightID string, results int) ([]models.SensorReading, error) {
	if results <= 0 {
		results = DefaultLogResults
	}

	readings, err := c.fetch(ctx, lightID, results)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// fetch returns feed entries oldest first, as the feed delivers them.
func (c *HTTPCollector) fetch(ctx context.Context, lightID string, results int) ([]models.SensorReading, error) {
	query := url.Values{}
	query.Set("results", strconv.Itoa(results))
	if c.readAPIKey != "" {
		query.Set("api_key", c.readAPIKey)
	}
	u := fmt.Sprintf("%s/channels/%s/feeds.json?%s", c.endpoint, url.PathEscape(c.channelFor(lightID)), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrCollectionFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrChannelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrCollectionFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrCollectionFailed, err)
	}

	// The feed answers "-1" for unknown channels or bad keys.
	if strings.TrimSpace(string(body)) == "-1" {
		return nil, ErrChannelNotFound
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(feed.Feeds) == 0 {
		return nil, ErrNoData
	}

	readings := make([]models.SensorReading, 0, len(feed.Feeds))
	for _, entry := range feed.Feeds {
		reading, err := entry.toReading(lightID)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func (e feedEntry) toReading(lightID string) (models.SensorReading, error) {
	light, err := fieldValue(e.Field1)
	if err != nil {
		return models.SensorReading{}, fmt.Errorf("%w: field1: %v", ErrInvalidResponse, err)
	}
	motion, err := fieldValue(e.Field2)
	if err != nil {
		return models.SensorReading{}, fmt.Errorf("%w: field2: %v", ErrInvalidResponse, err)
	}

	timestamp := time.Now()
	if e.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
			timestamp = parsed
		}
	}

	return models.SensorReading{
		LightID:      lightID,
		EntryID:      e.EntryID,
		AmbientLight: light,
		Motion:       motion,
		Timestamp:    timestamp,
	}, nil
}

// fieldValue decodes a feed field. Fields arrive as strings, numbers or null;
// missing values read as zero.
func fieldValue(v interface{}) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return cast.ToFloat64E(v)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *HTTPCollector) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/health", c.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
