package route

import (
	"time"

	"github.com/google/uuid"
)

// ResolvedEndpoint is a user-supplied place name together with its resolved coordinate.
type ResolvedEndpoint struct {
	Raw        string     `json:"raw"`
	Coordinate Coordinate `json:"coordinate"`
}

// Route is the normalized result of one successful variant fetch.
type Route struct {
	VariantKey      string       `json:"variant_key"`
	DisplayName     string       `json:"display_name"`
	Color           string       `json:"color"`
	DurationSeconds float64      `json:"duration_seconds"`
	LengthMeters    float64      `json:"length_meters"`
	Path            []Coordinate `json:"path"`
	Origin          Coordinate   `json:"origin"`
	Destination     Coordinate   `json:"destination"`
}

// DurationMinutes returns the duration rounded to whole minutes.
func (r Route) DurationMinutes() int {
	return int(r.DurationSeconds/60 + 0.5)
}

// LengthKm returns the length rounded to whole kilometres.
func (r Route) LengthKm() int {
	return int(r.LengthMeters/1000 + 0.5)
}

// VariantFailure records why a variant was omitted from a comparison.
type VariantFailure struct {
	VariantKey  string `json:"variant_key"`
	DisplayName string `json:"display_name"`
	Err         error  `json:"-"`
}

// Cause returns the human-readable cause class of the failure.
func (f VariantFailure) Cause() string { return Cause(f.Err) }

// Code returns the machine-readable code of the failure.
func (f VariantFailure) Code() string { return Code(f.Err) }

// ComparisonResult aggregates all variant routes for one endpoint pair.
// Routes and Failures are in catalog order; together they cover every catalog entry.
type ComparisonResult struct {
	ID                   uuid.UUID
	Start                ResolvedEndpoint
	End                  ResolvedEndpoint
	Routes               []Route
	Failures             []VariantFailure
	MapCenter            Coordinate
	DirectDistanceMeters float64
	CreatedAt            time.Time
}

// Fastest returns the route with the shortest duration, or false if there are none.
// Ties keep the earlier catalog entry.
func (r *ComparisonResult) Fastest() (Route, bool) {
	if len(r.Routes) == 0 {
		return Route{}, false
	}
	best := r.Routes[0]
	for _, rt := range r.Routes[1:] {
		if rt.DurationSeconds < best.DurationSeconds {
			best = rt
		}
	}
	return best, true
}
