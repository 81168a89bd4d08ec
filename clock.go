package stockrelay

import (
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the zone used to render current-timestamp placeholders.
const DefaultTimezone = "America/Sao_Paulo"

// Clock abstracts time for deterministic tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock uses the system time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// LoadLocation resolves name, falling back to UTC when the zone database has no entry.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, err
	}

	return loc, nil
}
