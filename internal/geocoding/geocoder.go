// Package geocoding resolves free-text place names into coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/hereapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the HERE Geocoding & Search v1 endpoint.
const DefaultBaseURL = "https://geocode.search.hereapi.com/v1"

// Resolver turns an address into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, address string) (route.Coordinate, error)
}

// Config defines settings for the HERE geocoder.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
	Limit          int
	HTTPClient     *http.Client
}

// HereGeocoder implements Resolver against the HERE geocoding service.
// The first candidate returned by the service wins and nothing is retried.
type HereGeocoder struct {
	client  *hereapi.Client
	limiter *rate.Limiter
	limit   int
	logger  *zap.Logger
}

// NewHereGeocoder creates a geocoder. An empty API key yields route.ErrMissingCredential.
func NewHereGeocoder(cfg Config, logger *zap.Logger) (*HereGeocoder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}

	client, err := hereapi.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSec > 0 {
		// Burst of two lets both endpoints of a comparison resolve together.
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 2)
	}

	return &HereGeocoder{
		client:  client,
		limiter: limiter,
		limit:   cfg.Limit,
		logger:  logger,
	}, nil
}

type geocodeResponse struct {
	Items []struct {
		Title    string `json:"title"`
		Position *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

// Resolve geocodes the address and returns the first candidate's position.
func (g *HereGeocoder) Resolve(ctx context.Context, address string) (route.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return route.Coordinate{}, fmt.Errorf("%w: address is required", route.ErrInvalidInput)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return route.Coordinate{}, limiterError(ctx, err)
	}

	params := url.Values{
		"q":     {address},
		"limit": {strconv.Itoa(g.limit)},
	}

	var resp geocodeResponse
	start := time.Now()
	if err := g.client.GetJSON(ctx, "/geocode", params, &resp, route.ErrResolutionTransport); err != nil {
		g.logger.Warn("geocoding request failed",
			zap.String("address", address),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return route.Coordinate{}, err
	}

	if len(resp.Items) == 0 {
		return route.Coordinate{}, fmt.Errorf("%w: %q", route.ErrAddressNotFound, address)
	}
	first := resp.Items[0]
	if first.Position == nil {
		return route.Coordinate{}, fmt.Errorf("%w: candidate for %q has no position", route.ErrResolutionTransport, address)
	}

	coord := route.Coordinate{Lat: first.Position.Lat, Lng: first.Position.Lng}
	if !coord.Valid() {
		return route.Coordinate{}, fmt.Errorf("%w: candidate for %q out of range: %s", route.ErrResolutionTransport, address, coord)
	}

	g.logger.Debug("address resolved",
		zap.String("address", address),
		zap.String("title", first.Title),
		zap.Float64("lat", coord.Lat),
		zap.Float64("lng", coord.Lng),
		zap.Duration("elapsed", time.Since(start)),
	)
	return coord, nil
}

// limiterError classifies a failed limiter wait. The limiter refuses up front
// a wait that would outlast the context deadline, so that case is a timeout
// even though the context has not expired yet.
func limiterError(ctx context.Context, err error) error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.Canceled):
		return ctxErr
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", route.ErrTimeout, context.DeadlineExceeded)
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: rate limiter: %v", route.ErrTimeout, err)
	}
	return fmt.Errorf("%w: rate limiter: %v", route.ErrResolutionTransport, err)
}
