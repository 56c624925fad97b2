package route

import (
	"context"
	"errors"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/polyline"
)

// Failure classes surfaced by the comparison engine. Wrap them with
// fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrMissingCredential   = errors.New("missing API credential")
	ErrAddressNotFound     = errors.New("address not found")
	ErrResolutionTransport = errors.New("geocoding request failed")
	ErrRouteTransport      = errors.New("routing request failed")
	ErrNoRouteSection      = errors.New("no route section in response")
	ErrMalformedPolyline   = polyline.ErrMalformedPolyline
	ErrTimeout             = errors.New("request timed out")
	ErrNoRoutes            = errors.New("no route variant succeeded")
	ErrSuperseded          = errors.New("comparison superseded by a newer request")
	ErrComparisonNotFound  = errors.New("comparison not found")
)

// Human-readable cause strings. Each implies a different remediation:
// correct the input, retry later, or report a bug.
const (
	CauseInvalidInput  = "invalid input"
	CauseNotFound      = "address not found"
	CauseUnavailable   = "service unavailable"
	CauseTimeout       = "request timed out"
	CauseMalformed     = "malformed response"
	CauseNoRoute       = "no route available"
	CauseMisconfigured = "service misconfigured"
	CauseSuperseded    = "superseded"
	CauseNoComparison  = "comparison not found"
	CauseUnknown       = "unexpected error"
)

// Dominant returns the failure that best explains err. When err reports that
// no variant succeeded, it is the first variant failure of the most common
// class; ErrNoRoutes itself is returned only when no failures were joined.
// Any other error is returned unchanged.
func Dominant(err error) error {
	if !errors.Is(err, ErrNoRoutes) {
		return err
	}
	failures := variantFailures(err)
	if len(failures) == 0 {
		return ErrNoRoutes
	}

	counts := make(map[string]int, len(failures))
	for _, f := range failures {
		counts[Code(f)]++
	}
	best := failures[0]
	for _, f := range failures[1:] {
		if counts[Code(f)] > counts[Code(best)] {
			best = f
		}
	}
	return best
}

// variantFailures returns the errors joined alongside ErrNoRoutes.
func variantFailures(err error) []error {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var out []error
		for _, member := range e.Unwrap() {
			if errors.Is(member, ErrNoRoutes) {
				if nested := variantFailures(member); len(nested) > 0 {
					out = append(out, nested...)
				}
				continue
			}
			out = append(out, member)
		}
		return out
	case interface{ Unwrap() error }:
		return variantFailures(e.Unwrap())
	}
	return nil
}

// Cause maps an error to a human-readable cause class.
func Cause(err error) string {
	err = Dominant(err)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CauseInvalidInput
	case errors.Is(err, ErrMissingCredential):
		return CauseMisconfigured
	case errors.Is(err, ErrNoRoutes):
		return CauseNoRoute
	case errors.Is(err, ErrAddressNotFound):
		return CauseNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, ErrMalformedPolyline):
		return CauseMalformed
	case errors.Is(err, ErrNoRouteSection):
		return CauseNoRoute
	case errors.Is(err, ErrResolutionTransport), errors.Is(err, ErrRouteTransport):
		return CauseUnavailable
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return CauseSuperseded
	case errors.Is(err, ErrComparisonNotFound):
		return CauseNoComparison
	default:
		return CauseUnknown
	}
}

// Code maps an error to a stable machine-readable code.
func Code(err error) string {
	err = Dominant(err)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrMissingCredential):
		return "MISSING_CREDENTIAL"
	case errors.Is(err, ErrNoRoutes):
		return "NO_ROUTES"
	case errors.Is(err, ErrAddressNotFound):
		return "ADDRESS_NOT_FOUND"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, ErrMalformedPolyline):
		return "MALFORMED_POLYLINE"
	case errors.Is(err, ErrNoRouteSection):
		return "NO_ROUTE_SECTION"
	case errors.Is(err, ErrResolutionTransport):
		return "RESOLUTION_TRANSPORT"
	case errors.Is(err, ErrRouteTransport):
		return "ROUTE_TRANSPORT"
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return "SUPERSEDED"
	case errors.Is(err, ErrComparisonNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
