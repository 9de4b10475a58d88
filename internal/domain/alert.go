package domain

import "time"

// Hazard is a longer-lived NWS product (watch, advisory, or warning) with an
// onset and an expiration.
type Hazard struct {
	Kind       string    `json:"kind"`
	Onset      time.Time `json:"onset"`
	Expiration time.Time `json:"expiration"`
	Polygon    Polygon   `json:"polygon"`
}

// Warning is an effective-immediately product: it only carries an expiration.
type Warning struct {
	Kind       string    `json:"kind"`
	Expiration time.Time `json:"expiration"`
	Polygon    Polygon   `json:"polygon"`
}

// ActiveAlerts is the outcome of one alert lookup. Hazards and warnings are
// fetched independently, so each carries its own error; a failed side is
// rendered as an empty overlay.
type ActiveAlerts struct {
	Hazards     []Hazard
	Warnings    []Warning
	HazardsErr  error
	WarningsErr error
}

// Kinds returns the kind tags of all hazards followed by all warnings, in
// reported order.
func (a ActiveAlerts) Kinds() []string {
	kinds := make([]string, 0, len(a.Hazards)+len(a.Warnings))
	for _, h := range a.Hazards {
		kinds = append(kinds, h.Kind)
	}
	for _, w := range a.Warnings {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

// Empty reports whether no hazard or warning is active.
func (a ActiveAlerts) Empty() bool {
	return len(a.Hazards) == 0 && len(a.Warnings) == 0
}
