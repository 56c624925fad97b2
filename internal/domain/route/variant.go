package route

import (
	"fmt"
	"strings"
)

// TransportModeCar is the transport mode requested when none is configured.
const TransportModeCar = "car"

// Avoidable road features understood by the routing service.
const (
	AvoidControlledAccessHighway = "controlledAccessHighway"
	AvoidTollRoad                = "tollRoad"
)

// Palette assigns display colors to catalog entries by declaration position.
var Palette = []string{"red", "blue", "green", "purple"}

// RouteQuery holds the routing constraints for one request. It never carries the credential.
type RouteQuery struct {
	TransportMode string
	Origin        Coordinate
	Destination   Coordinate
	Via           []Coordinate
	Avoid         []string
}

// QueryBuilder turns an endpoint pair into a routing query.
type QueryBuilder func(origin, destination Coordinate) RouteQuery

// Variant describes one routing strategy requested for every endpoint pair.
type Variant struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`

	build QueryBuilder
}

// NewVariant creates a variant descriptor. The color is assigned by the catalog.
func NewVariant(key, displayName string, build QueryBuilder) Variant {
	return Variant{Key: key, DisplayName: displayName, build: build}
}

// Query builds the routing query for the given endpoints.
func (v Variant) Query(origin, destination Coordinate) RouteQuery {
	if v.build == nil {
		return RouteQuery{TransportMode: TransportModeCar, Origin: origin, Destination: destination}
	}
	q := v.build(origin, destination)
	q.Via = append([]Coordinate(nil), q.Via...)
	q.Avoid = append([]string(nil), q.Avoid...)
	return q
}

// Catalog is the immutable, ordered set of variants requested per comparison.
type Catalog struct {
	variants []Variant
}

// NewCatalog validates the variants and assigns each a color from the palette by position.
// A variant that already carries a color keeps it.
func NewCatalog(variants ...Variant) (*Catalog, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: catalog must contain at least one variant", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]Variant, len(variants))
	for i, v := range variants {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: variant %d has an empty key", ErrInvalidInput, i)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate variant key %q", ErrInvalidInput, key)
		}
		seen[key] = struct{}{}

		v.Key = key
		if v.DisplayName == "" {
			v.DisplayName = key
		}
		if v.Color == "" {
			v.Color = Palette[i%len(Palette)]
		}
		out[i] = v
	}

	return &Catalog{variants: out}, nil
}

// DefaultCatalog returns the standard comparison set: fastest, via the fixed
// waypoint, avoiding highways and avoiding tolls.
func DefaultCatalog(transportMode string, via Coordinate) (*Catalog, error) {
	if transportMode == "" {
		transportMode = TransportModeCar
	}
	if !via.Valid() {
		return nil, fmt.Errorf("%w: waypoint %s out of range", ErrInvalidInput, via)
	}

	base := func(origin, destination Coordinate) RouteQuery {
		return RouteQuery{TransportMode: transportMode, Origin: origin, Destination: destination}
	}

	return NewCatalog(
		NewVariant("fastest", "Fastest (standard)", base),
		NewVariant("via-waypoint", "Via waypoint", func(o, d Coordinate) RouteQuery {
			q := base(o, d)
			q.Via = []Coordinate{via}
			return q
		}),
		NewVariant("no-motorway", "Avoid highways", func(o, d Coordinate) RouteQuery {
			q := base(o, d)
			q.Avoid = []string{AvoidControlledAccessHighway}
			return q
		}),
		NewVariant("no-toll", "Avoid tolls", func(o, d Coordinate) RouteQuery {
			q := base(o, d)
			q.Avoid = []string{AvoidTollRoad}
			return q
		}),
	)
}

// Variants returns a copy of the catalog entries in declaration order.
func (c *Catalog) Variants() []Variant {
	out := make([]Variant, len(c.variants))
	copy(out, c.variants)
	return out
}

// Len returns the number of variants.
func (c *Catalog) Len() int { return len(c.variants) }

// Lookup finds a variant by key.
func (c *Catalog) Lookup(key string) (Variant, bool) {
	for _, v := range c.variants {
		if v.Key == key {
			return v, true
		}
	}
	return Variant{}, false
}
