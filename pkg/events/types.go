package events

import "encoding/json"

// Event names.
const (
	BatchCompleted = "batch.completed"
	ConfigChanged  = "config.changed"
)

// Event is one server-sent event.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// BatchCompletedEvent is published once per upload after every file in it
// has been converted.
type BatchCompletedEvent struct {
	ID      string   `json:"id"`
	Method  string   `json:"method"`
	Outputs []string `json:"outputs"`
	Failed  int      `json:"failed"`
	Ts      int64    `json:"ts"`
}

// ConfigChangedEvent is published when a setting is changed over the API.
type ConfigChangedEvent struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Ts    int64  `json:"ts"`
}

// DecodeAs decodes the payload of e into T. An empty payload yields the zero
// value of T.
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
