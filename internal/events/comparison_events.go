package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on the comparison topic.
const (
	ComparisonCompleted = "route.comparison.completed"
	ComparisonFailed    = "route.comparison.failed"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "route.comparison.events"

// RouteSummary is the per-variant part of a completed event. Paths are not published.
type RouteSummary struct {
	VariantKey      string  `json:"variant_key"`
	DurationSeconds float64 `json:"duration_seconds"`
	LengthMeters    float64 `json:"length_meters"`
}

// ComparisonCompletedEvent is published when at least one route was produced.
type ComparisonCompletedEvent struct {
	ComparisonID         uuid.UUID      `json:"comparison_id"`
	StartAddress         string         `json:"start_address"`
	EndAddress           string         `json:"end_address"`
	Routes               []RouteSummary `json:"routes"`
	FailedVariants       []string       `json:"failed_variants,omitempty"`
	FastestVariant       string         `json:"fastest_variant"`
	DirectDistanceMeters float64        `json:"direct_distance_meters"`
	ElapsedMs            int64          `json:"elapsed_ms"`
	Timestamp            time.Time      `json:"timestamp"`
}

// ComparisonFailedEvent is published when a comparison produced no result.
type ComparisonFailedEvent struct {
	ComparisonID uuid.UUID `json:"comparison_id"`
	StartAddress string    `json:"start_address"`
	EndAddress   string    `json:"end_address"`
	ErrorCode    string    `json:"error_code"`
	Cause        string    `json:"cause"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
