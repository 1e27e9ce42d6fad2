package delta

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ObjectDelta wraps a whole-object payload with sync metadata. When marshaled
// the payload's fields are flattened next to hasChanges/deltaType/lastUpdate,
// except for TypeNone, which carries only the metadata.
type ObjectDelta struct {
	HasChanges bool
	DeltaType  Type
	LastUpdate string
	Payload    any
}

func (d ObjectDelta) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if d.DeltaType != TypeNone && d.Payload != nil {
		raw, err := sonic.Marshal(d.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal delta payload: %w", err)
		}
		if err := sonic.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("flatten delta payload: %w", err)
		}
	}
	fields["hasChanges"] = d.HasChanges
	fields["deltaType"] = d.DeltaType
	fields["lastUpdate"] = d.LastUpdate
	return sonic.Marshal(fields)
}

// GenerateDelta decides between full, partial, and none for an object whose
// own last-modified time is updatedAt. A zero updatedAt is treated as now.
func GenerateDelta(payload any, updatedAt time.Time, lastSync string, now time.Time) ObjectDelta {
	since, ok := ParseLastSync(lastSync)
	if !ok {
		return ObjectDelta{
			HasChanges: true,
			DeltaType:  TypeFull,
			LastUpdate: FormatTimestamp(now),
			Payload:    payload,
		}
	}

	if updatedAt.IsZero() {
		updatedAt = now
	}
	if !updatedAt.Truncate(time.Millisecond).After(since.Truncate(time.Millisecond)) {
		return ObjectDelta{
			HasChanges: false,
			DeltaType:  TypeNone,
			LastUpdate: FormatTimestamp(updatedAt),
		}
	}

	return ObjectDelta{
		HasChanges: true,
		DeltaType:  TypePartial,
		LastUpdate: FormatTimestamp(now),
		Payload:    payload,
	}
}

// GenerateSummaryDelta is GenerateDelta keyed on the summary's lastUpdate string.
func GenerateSummaryDelta(payload any, lastUpdate string, lastSync string, now time.Time) ObjectDelta {
	updatedAt, _ := ParseLastSync(lastUpdate)
	return GenerateDelta(payload, updatedAt, lastSync, now)
}

// heavyFields are dropped from team payloads before they go over the wire.
var heavyFields = []string{"fullRoster", "detailedStats", "playByPlay", "boxScore", "seasonStats"}

// OptimizePayload removes heavy keys from maps, recursing into nested maps and
// slices. Other values are returned untouched.
func OptimizePayload(data any) any {
	switch value := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			if isHeavyField(key) {
				continue
			}
			out[key] = OptimizePayload(item)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = OptimizePayload(item)
		}
		return out
	default:
		return data
	}
}

func isHeavyField(key string) bool {
	for _, field := range heavyFields {
		if field == key {
			return true
		}
	}
	return false
}
