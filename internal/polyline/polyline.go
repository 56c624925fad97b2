// Package polyline decodes route geometries returned by the routing service.
//
// Two wire forms are supported. The primary form is a flat sequence of signed
// fixed-point integers (scale 1e5) holding alternating latitude and longitude
// deltas. The text form is HERE's Flexible Polyline, which prefixes a header
// and packs the same deltas into URL-safe characters.
package polyline

import (
	"errors"
	"fmt"
	"math"
)

// Scale is the fixed-point factor of the integer form (five decimal places).
const Scale = 1e5

// ErrMalformedPolyline is returned when an encoded polyline cannot be decoded.
var ErrMalformedPolyline = errors.New("malformed polyline")

// Point is a decoded latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Decode converts a delta-encoded integer sequence into an ordered list of points.
// Values are consumed two at a time: the first is added to the latitude
// accumulator, the second to the longitude accumulator. An empty input yields
// an empty, non-nil slice.
func Decode(values []int64) ([]Point, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of values (%d)", ErrMalformedPolyline, len(values))
	}

	points := make([]Point, 0, len(values)/2)
	var lat, lng int64
	for i := 0; i < len(values); i += 2 {
		lat += values[i]
		lng += values[i+1]
		points = append(points, Point{
			Lat: float64(lat) / Scale,
			Lng: float64(lng) / Scale,
		})
	}
	return points, nil
}

// Encode is the inverse of Decode. Coordinates are rounded to the nearest 1e-5 degree.
func Encode(points []Point) []int64 {
	values := make([]int64, 0, len(points)*2)
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * Scale))
		lng := int64(math.Round(p.Lng * Scale))
		values = append(values, lat-prevLat, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return values
}

// flexAlphabet maps 6-bit chunks to characters in HERE's Flexible Polyline text form.
const flexAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// FlexibleVersion is the only Flexible Polyline format version understood.
const FlexibleVersion = 1

var flexIndex = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(flexAlphabet); i++ {
		idx[flexAlphabet[i]] = int8(i)
	}
	return idx
}()

// DecodeFlexible decodes HERE's Flexible Polyline text form, the string the
// routing service returns by default. The header sets the precision; a third
// dimension, when the header declares one, is read and discarded. An empty
// string is malformed because it lacks the header.
func DecodeFlexible(encoded string) ([]Point, error) {
	values, err := flexValues(encoded)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedPolyline)
	}
	if values[0] != FlexibleVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedPolyline, values[0])
	}

	header := values[1]
	precision := int(header & 15)
	dims := 2
	if (header>>4)&7 != 0 {
		dims = 3
	}

	body := values[2:]
	if len(body)%dims != 0 {
		return nil, fmt.Errorf("%w: incomplete coordinate at value %d", ErrMalformedPolyline, len(body)-len(body)%dims)
	}

	scale := math.Pow10(precision)
	points := make([]Point, 0, len(body)/dims)
	var lat, lng int64
	for i := 0; i < len(body); i += dims {
		lat += unzigzag(body[i])
		lng += unzigzag(body[i+1])
		points = append(points, Point{
			Lat: float64(lat) / scale,
			Lng: float64(lng) / scale,
		})
	}
	return points, nil
}

// EncodeFlexible encodes points into the Flexible Polyline text form with
// precision 5 and no third dimension.
func EncodeFlexible(points []Point) string {
	buf := make([]byte, 0, 2+len(points)*8)
	buf = appendFlexValue(buf, FlexibleVersion)
	buf = appendFlexValue(buf, 5)
	for _, v := range Encode(points) {
		buf = appendFlexValue(buf, zigzag(v))
	}
	return string(buf)
}

// flexValues splits encoded text into unsigned values of 5-bit chunks,
// where a set 0x20 bit means another chunk follows.
func flexValues(encoded string) ([]uint64, error) {
	values := make([]uint64, 0, len(encoded)/2)
	var value uint64
	shift := uint(0)

	for i := 0; i < len(encoded); i++ {
		chunk := flexIndex[encoded[i]]
		if chunk < 0 {
			return nil, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformedPolyline, encoded[i], i)
		}
		value |= uint64(chunk&0x1f) << shift
		if chunk&0x20 == 0 {
			values = append(values, value)
			value, shift = 0, 0
			continue
		}
		shift += 5
		if shift > 60 {
			return nil, fmt.Errorf("%w: value overflow at offset %d", ErrMalformedPolyline, i)
		}
	}
	if shift != 0 {
		return nil, fmt.Errorf("%w: truncated value at offset %d", ErrMalformedPolyline, len(encoded))
	}
	return values, nil
}

func appendFlexValue(buf []byte, v uint64) []byte {
	for v >= 0x20 {
		buf = append(buf, flexAlphabet[(v&0x1f)|0x20])
		v >>= 5
	}
	return append(buf, flexAlphabet[v])
}

func zigzag(v int64) uint64 {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	return u
}

func unzigzag(u uint64) int64 {
	if u&1 != 0 {
		return ^int64(u >> 1)
	}
	return int64(u >> 1)
}
