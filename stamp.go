package stockrelay

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the format substituted for current-timestamp placeholders.
const TimestampLayout = "2006-01-02 15:04:05"

// Placeholders replaced with the delivery time on every attempt.
const (
	PlaceholderRawTimestamp     = "RAW:CURRENT_TIMESTAMP"
	PlaceholderDynamicTimestamp = "DYNAMIC_TIMESTAMP"
)

// StampPayload replaces current-timestamp placeholders in payload with now rendered in loc.
func StampPayload(payload json.RawMessage, now time.Time, loc *time.Location) json.RawMessage {
	if loc != nil {
		now = now.In(loc)
	}
	formatted := now.Format(TimestampLayout)
	replacer := strings.NewReplacer(
		PlaceholderRawTimestamp, formatted,
		PlaceholderDynamicTimestamp, formatted,
	)

	return json.RawMessage(replacer.Replace(string(payload)))
}
