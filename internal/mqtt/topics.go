package mqtt

import "strings"

const (
	DefaultSensorTopic  = "streetlight/+/sensors"
	DefaultControlTopic = "streetlight/{light_id}/control"
)

// FormatTopic replaces the {light_id} placeholder in a topic pattern.
func FormatTopic(pattern, lightID string) string {
	return strings.ReplaceAll(pattern, "{light_id}", lightID)
}

// LightIDFromTopic extracts the segment matched by the single-level wildcard
// in pattern. It returns false when topic does not match pattern.
func LightIDFromTopic(pattern, topic string) (string, bool) {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	if len(want) != len(got) {
		return "", false
	}

	var id string
	for i, seg := range want {
		switch seg {
		case "+", "{light_id}":
			if got[i] == "" {
				return "", false
			}
			id = got[i]
		default:
			if seg != got[i] {
				return "", false
			}
		}
	}
	return id, id != ""
}

// SubscriptionTopic turns a {light_id} pattern into a wildcard subscription.
func SubscriptionTopic(pattern string) string {
	return strings.ReplaceAll(pattern, "{light_id}", "+")
}
