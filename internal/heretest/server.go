// Package heretest provides an in-process fake of the HERE geocoding and routing services.
package heretest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/polyline"
)

// RouteReply is the canned answer for one routing request.
type RouteReply struct {
	Status   int
	Duration float64
	Length   float64
	Path     []route.Coordinate
	NoRoute  bool
	// Flexible sends the path as Flexible Polyline text instead of an integer array.
	Flexible bool
}

// Server fakes both services on a single listener: /geocode and /routes.
type Server struct {
	*httptest.Server

	// APIKey, when set, is required on every request.
	APIKey string

	mu        sync.RWMutex
	places    map[string]route.Coordinate
	routeFunc func(params url.Values) RouteReply

	geocodeCalls int64
	routeCalls   int64
}

// NewServer starts a fake with no places and a routing reply of one 1800 s / 45 km route.
func NewServer() *Server {
	s := &Server{
		places: make(map[string]route.Coordinate),
		routeFunc: func(params url.Values) RouteReply {
			return RouteReply{Duration: 1800, Length: 45000}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", s.handleGeocode)
	mux.HandleFunc("/routes", s.handleRoutes)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddPlace registers a geocoding answer for the exact query text.
func (s *Server) AddPlace(query string, coord route.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[query] = coord
}

// OnRoute replaces the routing reply function.
func (s *Server) OnRoute(fn func(params url.Values) RouteReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routeFunc = fn
}

// GeocodeCalls returns the number of geocoding requests served.
func (s *Server) GeocodeCalls() int64 { return atomic.LoadInt64(&s.geocodeCalls) }

// RouteCalls returns the number of routing requests served.
func (s *Server) RouteCalls() int64 { return atomic.LoadInt64(&s.routeCalls) }

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.APIKey != "" && r.URL.Query().Get("apiKey") != s.APIKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
		return false
	}
	return true
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.geocodeCalls, 1)
	if !s.authorized(w, r) {
		return
	}

	s.mu.RLock()
	coord, ok := s.places[r.URL.Query().Get("q")]
	s.mu.RUnlock()

	items := []interface{}{}
	if ok {
		items = append(items, map[string]interface{}{
			"title":    r.URL.Query().Get("q"),
			"position": map[string]float64{"lat": coord.Lat, "lng": coord.Lng},
		})
	}
	writeJSON(w, map[string]interface{}{"items": items})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.routeCalls, 1)
	if !s.authorized(w, r) {
		return
	}

	s.mu.RLock()
	fn := s.routeFunc
	s.mu.RUnlock()

	params := r.URL.Query()
	reply := fn(params)
	if reply.Status != 0 && reply.Status != http.StatusOK {
		w.WriteHeader(reply.Status)
		return
	}
	if reply.NoRoute {
		writeJSON(w, map[string]interface{}{"routes": []interface{}{}})
		return
	}

	path := reply.Path
	if path == nil {
		path = straightPath(params)
	}
	points := make([]polyline.Point, len(path))
	for i, c := range path {
		points[i] = polyline.Point{Lat: c.Lat, Lng: c.Lng}
	}

	var encoded interface{} = polyline.Encode(points)
	if reply.Flexible {
		encoded = polyline.EncodeFlexible(points)
	}

	writeJSON(w, map[string]interface{}{
		"routes": []interface{}{
			map[string]interface{}{
				"id": "route-1",
				"sections": []interface{}{
					map[string]interface{}{
						"id":       "section-1",
						"type":     "vehicle",
						"summary":  map[string]float64{"duration": reply.Duration, "length": reply.Length},
						"polyline": encoded,
					},
				},
			},
		},
	})
}

// straightPath returns origin and destination parsed from the request, or nothing.
func straightPath(params url.Values) []route.Coordinate {
	var out []route.Coordinate
	for _, key := range []string{"origin", "destination"} {
		var lat, lng float64
		if _, err := fmt.Sscanf(params.Get(key), "%f,%f", &lat, &lng); err == nil {
			out = append(out, route.Coordinate{Lat: lat, Lng: lng})
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
