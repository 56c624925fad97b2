package route

import (
	"strconv"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid returns true if the latitude is within [-90, 90] and the longitude within [-180, 180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// String renders the coordinate as "lat,lng", the format the routing service expects.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Midpoint returns the arithmetic midpoint of two coordinates.
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lng: (a.Lng + b.Lng) / 2,
	}
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lng))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lng))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(p1, p2).Angle())
	return angle.Radians() * earthRadiusMeters
}
