// Package routing fetches one route per variant from the routing service.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/hereapi"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/polyline"
	"go.uber.org/zap"
)

// DefaultBaseURL is the HERE Routing v8 endpoint.
const DefaultBaseURL = "https://router.hereapi.com/v8"

// Fetcher retrieves the route for one variant between two resolved endpoints.
type Fetcher interface {
	Fetch(ctx context.Context, v route.Variant, origin, destination route.Coordinate) (route.Route, error)
}

// Config defines settings for the HERE router.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HereRouter implements Fetcher against HERE Routing v8.
type HereRouter struct {
	client *hereapi.Client
	logger *zap.Logger
}

// NewHereRouter creates a router. An empty API key yields route.ErrMissingCredential.
func NewHereRouter(cfg Config, logger *zap.Logger) (*HereRouter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client, err := hereapi.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &HereRouter{client: client, logger: logger}, nil
}

type routesResponse struct {
	Routes []struct {
		ID       string `json:"id"`
		Sections []struct {
			Summary *struct {
				Duration float64 `json:"duration"`
				Length   float64 `json:"length"`
			} `json:"summary"`
			Polyline json.RawMessage `json:"polyline"`
		} `json:"sections"`
	} `json:"routes"`
}

// QueryParams renders a route query into request parameters, credential excluded.
func QueryParams(q route.RouteQuery) url.Values {
	mode := q.TransportMode
	if mode == "" {
		mode = route.TransportModeCar
	}

	params := url.Values{
		"transportMode": {mode},
		"origin":        {q.Origin.String()},
		"destination":   {q.Destination.String()},
		"return":        {"summary,polyline"},
	}
	for _, via := range q.Via {
		params.Add("via", via.String())
	}
	if len(q.Avoid) > 0 {
		params.Set("avoid[features]", strings.Join(q.Avoid, ","))
	}
	return params
}

// Fetch requests the variant's route and normalizes the first section of the first route.
func (r *HereRouter) Fetch(ctx context.Context, v route.Variant, origin, destination route.Coordinate) (route.Route, error) {
	q := v.Query(origin, destination)

	var resp routesResponse
	start := time.Now()
	if err := r.client.GetJSON(ctx, "/routes", QueryParams(q), &resp, route.ErrRouteTransport); err != nil {
		r.logger.Warn("routing request failed",
			zap.String("variant", v.Key),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return route.Route{}, err
	}

	if len(resp.Routes) == 0 || len(resp.Routes[0].Sections) == 0 {
		return route.Route{}, fmt.Errorf("%w: variant %s", route.ErrNoRouteSection, v.Key)
	}
	section := resp.Routes[0].Sections[0]
	if section.Summary == nil {
		return route.Route{}, fmt.Errorf("%w: variant %s: section has no summary", route.ErrRouteTransport, v.Key)
	}

	path, err := DecodePath(section.Polyline)
	if err != nil {
		return route.Route{}, fmt.Errorf("variant %s: %w", v.Key, err)
	}

	r.logger.Debug("route fetched",
		zap.String("variant", v.Key),
		zap.Float64("duration_s", section.Summary.Duration),
		zap.Float64("length_m", section.Summary.Length),
		zap.Int("points", len(path)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return route.Route{
		VariantKey:      v.Key,
		DisplayName:     v.DisplayName,
		Color:           v.Color,
		DurationSeconds: section.Summary.Duration,
		LengthMeters:    section.Summary.Length,
		Path:            path,
		Origin:          origin,
		Destination:     destination,
	}, nil
}

// DecodePath decodes a section polyline given either as a delta-encoded integer
// array or as Flexible Polyline text.
// An empty array decodes to an empty path; a missing polyline is malformed.
func DecodePath(raw json.RawMessage) ([]route.Coordinate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: section has no polyline", route.ErrMalformedPolyline)
	}

	var points []polyline.Point
	switch trimmed[0] {
	case '[':
		var values []int64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, fmt.Errorf("%w: %v", route.ErrMalformedPolyline, err)
		}
		decoded, err := polyline.Decode(values)
		if err != nil {
			return nil, err
		}
		points = decoded
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", route.ErrMalformedPolyline, err)
		}
		decoded, err := polyline.DecodeFlexible(text)
		if err != nil {
			return nil, err
		}
		points = decoded
	default:
		return nil, fmt.Errorf("%w: unsupported polyline encoding", route.ErrMalformedPolyline)
	}

	path := make([]route.Coordinate, len(points))
	for i, p := range points {
		path[i] = route.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	return path, nil
}
