package stockrelay

// Status is the audit state recorded for a supplier item.
type Status string

const (
	// StatusSimulation records an item accepted in simulation mode.
	StatusSimulation Status = "simulation"
	// StatusSuccess records a delivery confirmed by the downstream endpoint.
	StatusSuccess Status = "success"
	// StatusError records an item that was dead-lettered.
	StatusError Status = "error"
)

// Valid reports whether s is a known audit status.
func (s Status) Valid() bool {
	switch s {
	case StatusSimulation, StatusSuccess, StatusError:
		return true
	default:
		return false
	}
}
