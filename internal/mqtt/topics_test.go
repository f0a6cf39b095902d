package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "streetlight/sl-1/control", FormatTopic(DefaultControlTopic, "sl-1"))
	assert.Equal(t, "streetlight/+/control", SubscriptionTopic(DefaultControlTopic))
}

func TestLightIDFromTopic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		id      string
		ok      bool
	}{
		{name: "wildcard match", pattern: DefaultSensorTopic, topic: "streetlight/sl-1/sensors", id: "sl-1", ok: true},
		{name: "placeholder match", pattern: DefaultControlTopic, topic: "streetlight/sl-2/control", id: "sl-2", ok: true},
		{name: "wrong suffix", pattern: DefaultSensorTopic, topic: "streetlight/sl-1/control", ok: false},
		{name: "too deep", pattern: DefaultSensorTopic, topic: "streetlight/a/b/sensors", ok: false},
		{name: "empty id", pattern: DefaultSensorTopic, topic: "streetlight//sensors", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := LightIDFromTopic(tt.pattern, tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMemoryBroker(t *testing.T) {
	b := NewMemoryBroker()

	var got []string
	require.NoError(t, b.Subscribe("streetlight/+/sensors", 1, func(topic string, payload []byte) {
		got = append(got, topic+"="+string(payload))
	}))

	require.NoError(t, b.Publish("streetlight/a/sensors", 1, false, []byte("1")))
	require.NoError(t, b.Publish("streetlight/a/control", 1, true, []byte("2")))
	require.NoError(t, b.Unsubscribe("streetlight/+/sensors"))
	require.NoError(t, b.Publish("streetlight/b/sensors", 1, false, []byte("3")))

	assert.Equal(t, []string{"streetlight/a/sensors=1"}, got)
	assert.Len(t, b.Published(), 3)

	retained, ok := b.Retained("streetlight/a/control")
	require.True(t, ok)
	assert.Equal(t, "2", string(retained))
}

func TestMemoryBroker_ReplaysRetained(t *testing.T) {
	b := NewMemoryBroker()
	require.NoError(t, b.Publish("streetlight/a/control", 1, true, []byte(`{"lights_on":1}`)))

	var replayed []string
	require.NoError(t, b.Subscribe("streetlight/#", 1, func(topic string, _ []byte) {
		replayed = append(replayed, topic)
	}))

	assert.Equal(t, []string{"streetlight/a/control"}, replayed)
}

func TestTopicMatches(t *testing.T) {
	assert.True(t, topicMatches("a/+/c", "a/b/c"))
	assert.True(t, topicMatches("a/#", "a/b/c"))
	assert.False(t, topicMatches("a/+", "a/b/c"))
	assert.False(t, topicMatches("a/b/c", "a/b"))
}
