package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/streetlight-controller/internal/mqtt"
)

func TestMQTTCollector_Collect(t *testing.T) {
	broker := mqtt.NewMemoryBroker()
	c, err := NewMQTTCollector(broker, MQTTCollectorConfig{})
	require.NoError(t, err)

	_, err = c.Collect(context.Background(), "sl-1")
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false,
		[]byte(`{"ambient_light_sensor":"640","motion_sensor":1,"entry_id":"9","timestamp":"2024-05-01T18:00:00Z"}`)))

	reading, err := c.Collect(context.Background(), "sl-1")
	require.NoError(t, err)
	assert.Equal(t, "sl-1", reading.LightID)
	assert.Equal(t, 640.0, reading.AmbientLight)
	assert.Equal(t, 1.0, reading.Motion)
	assert.Equal(t, 9, reading.EntryID)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC), reading.Timestamp)

	_, err = c.Collect(context.Background(), "sl-2")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMQTTCollector_DropsBadPayloads(t *testing.T) {
	broker := mqtt.NewMemoryBroker()
	c, err := NewMQTTCollector(broker, MQTTCollectorConfig{})
	require.NoError(t, err)

	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false, []byte(`{"ambient_light_sensor":300}`)))
	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false, []byte(`not json`)))
	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false, []byte(`{"ambient_light_sensor":"bright"}`)))

	reading, err := c.Collect(context.Background(), "sl-1")
	require.NoError(t, err)
	assert.Equal(t, 300.0, reading.AmbientLight)
	assert.Equal(t, 0.0, reading.Motion)
}

func TestMQTTCollector_MaxAge(t *testing.T) {
	broker := mqtt.NewMemoryBroker()
	c, err := NewMQTTCollector(broker, MQTTCollectorConfig{MaxAge: time.Minute})
	require.NoError(t, err)

	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false,
		[]byte(`{"ambient_light_sensor":300,"motion_sensor":0,"timestamp":"2020-01-01T00:00:00Z"}`)))

	_, err = c.Collect(context.Background(), "sl-1")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMQTTCollector_Close(t *testing.T) {
	broker := mqtt.NewMemoryBroker()
	c, err := NewMQTTCollector(broker, MQTTCollectorConfig{})
	require.NoError(t, err)

	assert.NoError(t, c.HealthCheck(context.Background()))
	require.NoError(t, c.Close())

	require.NoError(t, broker.Publish("streetlight/sl-1/sensors", 1, false, []byte(`{"ambient_light_sensor":1}`)))
	_, err = c.Collect(context.Background(), "sl-1")
	assert.ErrorIs(t, err, ErrNoData)
}
