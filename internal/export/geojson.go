// Package export renders comparison results for map clients.
package export

import (
	"encoding/json"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection builds one LineString feature per route followed by start, end and
// map-center markers. Coordinates are emitted as (lng, lat) as GeoJSON requires.
func FeatureCollection(result *route.ComparisonResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	bound := orb.MultiPoint{toPoint(result.Start.Coordinate), toPoint(result.End.Coordinate)}.Bound()

	for _, r := range result.Routes {
		line := make(orb.LineString, len(r.Path))
		for i, c := range r.Path {
			line[i] = toPoint(c)
		}
		if len(line) > 0 {
			bound = bound.Union(line.Bound())
		}

		feature := geojson.NewFeature(line)
		feature.Properties["type"] = "route"
		feature.Properties["variant"] = r.VariantKey
		feature.Properties["name"] = r.DisplayName
		feature.Properties["color"] = r.Color
		feature.Properties["duration_seconds"] = r.DurationSeconds
		feature.Properties["length_meters"] = r.LengthMeters
		feature.Properties["duration_minutes"] = r.DurationMinutes()
		feature.Properties["length_km"] = r.LengthKm()
		fc.Append(feature)
	}

	fc.Append(marker(result.Start, "start"))
	fc.Append(marker(result.End, "end"))

	center := geojson.NewFeature(toPoint(result.MapCenter))
	center.Properties["type"] = "center"
	fc.Append(center)

	fc.BBox = geojson.NewBBox(bound)
	fc.ExtraMembers = geojson.Properties{"comparison_id": result.ID.String()}
	return fc
}

// Marshal renders the result as GeoJSON bytes.
func Marshal(result *route.ComparisonResult) ([]byte, error) {
	return json.Marshal(FeatureCollection(result))
}

func marker(ep route.ResolvedEndpoint, kind string) *geojson.Feature {
	f := geojson.NewFeature(toPoint(ep.Coordinate))
	f.Properties["type"] = kind
	f.Properties["name"] = ep.Raw
	return f
}

func toPoint(c route.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}
