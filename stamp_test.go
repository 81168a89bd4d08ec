package stockrelay

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestStampPayloadReplacesPlaceholders(t *testing.T) {
	loc, err := LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, 7, 4, 3, 5, 9, 0, time.UTC)
	payload := json.RawMessage(`{"a":"RAW:CURRENT_TIMESTAMP","b":"DYNAMIC_TIMESTAMP","c":"keep"}`)

	got := StampPayload(payload, now, loc)

	want := `{"a":"2025-07-04 00:05:09","b":"2025-07-04 00:05:09","c":"keep"}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if string(payload) != `{"a":"RAW:CURRENT_TIMESTAMP","b":"DYNAMIC_TIMESTAMP","c":"keep"}` {
		t.Fatalf("expected input to stay untouched, got %s", payload)
	}
}

func TestStampPayloadNilLocationKeepsZone(t *testing.T) {
	now := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

	got := StampPayload(json.RawMessage(`{"t":"DYNAMIC_TIMESTAMP"}`), now, nil)

	if string(got) != `{"t":"2025-01-02 15:04:05"}` {
		t.Fatalf("unexpected stamp %s", got)
	}
}

func TestLoadLocationFallback(t *testing.T) {
	loc, err := LoadLocation("Nowhere/Invalid")
	if err == nil {
		t.Fatalf("expected error for unknown zone")
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}

	loc, err = LoadLocation("")
	if err != nil {
		t.Fatalf("default zone: %v", err)
	}
	if loc.String() != DefaultTimezone {
		t.Fatalf("expected %s, got %s", DefaultTimezone, loc)
	}
}
