package application

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/google/uuid"
)

// CompareRequest holds the two free-text locations of a comparison.
type CompareRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// EndpointDTO is a resolved endpoint.
type EndpointDTO struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// RouteDTO is the response representation of one variant route.
type RouteDTO struct {
	VariantKey      string             `json:"variant_key"`
	DisplayName     string             `json:"display_name"`
	Color           string             `json:"color"`
	DurationSeconds float64            `json:"duration_seconds"`
	LengthMeters    float64            `json:"length_meters"`
	DurationMinutes int                `json:"duration_minutes"`
	LengthKm        int                `json:"length_km"`
	Path            []route.Coordinate `json:"path"`
}

// FailureDTO explains why a variant is missing from the routes.
type FailureDTO struct {
	VariantKey  string `json:"variant_key"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
	Cause       string `json:"cause"`
}

// ComparisonDTO is the response representation of a comparison result.
type ComparisonDTO struct {
	ID                   uuid.UUID        `json:"id"`
	Start                EndpointDTO      `json:"start"`
	End                  EndpointDTO      `json:"end"`
	MapCenter            route.Coordinate `json:"map_center"`
	DirectDistanceMeters float64          `json:"direct_distance_meters"`
	FastestVariant       string           `json:"fastest_variant"`
	Routes               []RouteDTO       `json:"routes"`
	Failures             []FailureDTO     `json:"failures"`
	CreatedAt            time.Time        `json:"created_at"`
}

// VariantDTO describes one catalog entry.
type VariantDTO struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}

// ComparisonLogDTO is the response representation of a logged comparison.
type ComparisonLogDTO struct {
	ID                uuid.UUID `json:"id"`
	StartAddress      string    `json:"start_address"`
	EndAddress        string    `json:"end_address"`
	Status            string    `json:"status"`
	VariantsRequested int       `json:"variants_requested"`
	RoutesSucceeded   int       `json:"routes_succeeded"`
	ErrorCode         string    `json:"error_code,omitempty"`
	ErrorCause        string    `json:"error_cause,omitempty"`
	ElapsedMs         int64     `json:"elapsed_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToComparisonDTO converts a result for the wire. Routes and failures keep catalog order.
func ToComparisonDTO(r *route.ComparisonResult) *ComparisonDTO {
	dto := &ComparisonDTO{
		ID:                   r.ID,
		Start:                toEndpointDTO(r.Start),
		End:                  toEndpointDTO(r.End),
		MapCenter:            r.MapCenter,
		DirectDistanceMeters: r.DirectDistanceMeters,
		Routes:               make([]RouteDTO, 0, len(r.Routes)),
		Failures:             make([]FailureDTO, 0, len(r.Failures)),
		CreatedAt:            r.CreatedAt,
	}
	if fastest, ok := r.Fastest(); ok {
		dto.FastestVariant = fastest.VariantKey
	}
	for _, rt := range r.Routes {
		dto.Routes = append(dto.Routes, RouteDTO{
			VariantKey:      rt.VariantKey,
			DisplayName:     rt.DisplayName,
			Color:           rt.Color,
			DurationSeconds: rt.DurationSeconds,
			LengthMeters:    rt.LengthMeters,
			DurationMinutes: rt.DurationMinutes(),
			LengthKm:        rt.LengthKm(),
			Path:            rt.Path,
		})
	}
	for _, f := range r.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{
			VariantKey:  f.VariantKey,
			DisplayName: f.DisplayName,
			Code:        f.Code(),
			Cause:       f.Cause(),
		})
	}
	return dto
}

// ToVariantDTOs lists the catalog in declaration order.
func ToVariantDTOs(c *route.Catalog) []VariantDTO {
	variants := c.Variants()
	out := make([]VariantDTO, len(variants))
	for i, v := range variants {
		out[i] = VariantDTO{Key: v.Key, DisplayName: v.DisplayName, Color: v.Color}
	}
	return out
}

// ToComparisonLogDTO converts a log entry for the wire.
func ToComparisonLogDTO(e *route.ComparisonLogEntry) *ComparisonLogDTO {
	return &ComparisonLogDTO{
		ID:                e.ID,
		StartAddress:      e.StartAddress,
		EndAddress:        e.EndAddress,
		Status:            e.Status.String(),
		VariantsRequested: e.VariantsRequested,
		RoutesSucceeded:   e.RoutesSucceeded,
		ErrorCode:         e.ErrorCode,
		ErrorCause:        e.ErrorCause,
		ElapsedMs:         e.ElapsedMs,
		CreatedAt:         e.CreatedAt,
	}
}

func toEndpointDTO(ep route.ResolvedEndpoint) EndpointDTO {
	return EndpointDTO{Address: ep.Raw, Lat: ep.Coordinate.Lat, Lng: ep.Coordinate.Lng}
}
