package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/geocoding"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/heretest"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/routing"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	leverkusen = route.Coordinate{Lat: 51.0719, Lng: 7.0454}
	solingen   = route.Coordinate{Lat: 51.1831, Lng: 6.8157}
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *heretest.Server) {
	t.Helper()

	here := heretest.NewServer()
	t.Cleanup(here.Close)
	here.APIKey = "test-key"
	here.AddPlace("Leverkusen", leverkusen)
	here.AddPlace("Solingen", solingen)

	geocoder, err := geocoding.NewHereGeocoder(geocoding.Config{BaseURL: here.URL, APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	router, err := routing.NewHereRouter(routing.Config{BaseURL: here.URL, APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	catalog, err := route.DefaultCatalog(route.TransportModeCar, route.Coordinate{Lat: 51.0965, Lng: 6.9342})
	require.NoError(t, err)

	svc := application.NewComparisonService(geocoder, router, catalog, nil, nil, application.Options{
		GeocodeTimeout: 2 * time.Second,
		RouteTimeout:   2 * time.Second,
	}, zap.NewNop())

	r := gin.New()
	NewComparisonHandler(svc).RegisterRoutes(&r.RouterGroup)
	NewAdminComparisonHandler(svc).RegisterRoutes(&r.RouterGroup)
	NewLiveHandler(svc, zap.NewNop()).RegisterRoutes(&r.RouterGroup)
	return r, here
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCompare_Success(t *testing.T) {
	r, here := newTestRouter(t)

	w := postJSON(t, r, "/api/v1/comparisons", application.CompareRequest{Start: "Leverkusen", End: "Solingen"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	var dto application.ComparisonDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))

	keys := make([]string, len(dto.Routes))
	for i, rt := range dto.Routes {
		keys[i] = rt.VariantKey
		assert.Equal(t, 30, rt.DurationMinutes)
		assert.Equal(t, 45, rt.LengthKm)
		require.Len(t, rt.Path, 2)
	}
	assert.Equal(t, []string{"fastest", "via-waypoint", "no-motorway", "no-toll"}, keys)
	assert.Equal(t, []string{"red", "blue", "green", "purple"},
		[]string{dto.Routes[0].Color, dto.Routes[1].Color, dto.Routes[2].Color, dto.Routes[3].Color})
	assert.Empty(t, dto.Failures)
	assert.InDelta(t, 51.1275, dto.MapCenter.Lat, 1e-9)
	assert.InDelta(t, 6.93055, dto.MapCenter.Lng, 1e-9)
	assert.Equal(t, "fastest", dto.FastestVariant)
	assert.Equal(t, int64(2), here.GeocodeCalls())
	assert.Equal(t, int64(4), here.RouteCalls())
}

func TestCompare_PartialFailure(t *testing.T) {
	r, here := newTestRouter(t)
	here.OnRoute(func(params url.Values) heretest.RouteReply {
		if params.Get("avoid[features]") == route.AvoidTollRoad {
			return heretest.RouteReply{NoRoute: true}
		}
		return heretest.RouteReply{Duration: 1800, Length: 45000}
	})

	w := postJSON(t, r, "/api/v1/comparisons", application.CompareRequest{Start: "Leverkusen", End: "Solingen"})
	require.Equal(t, http.StatusOK, w.Code)

	var dto application.ComparisonDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))
	assert.Len(t, dto.Routes, 3)
	require.Len(t, dto.Failures, 1)
	assert.Equal(t, "no-toll", dto.Failures[0].VariantKey)
	assert.Equal(t, "NO_ROUTE_SECTION", dto.Failures[0].Code)
	assert.Equal(t, route.CauseNoRoute, dto.Failures[0].Cause)
}

func TestCompare_FlexiblePolylineRoutes(t *testing.T) {
	r, here := newTestRouter(t)
	here.OnRoute(func(url.Values) heretest.RouteReply {
		return heretest.RouteReply{Duration: 1800, Length: 45000, Flexible: true}
	})

	w := postJSON(t, r, "/api/v1/comparisons", application.CompareRequest{Start: "Leverkusen", End: "Solingen"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dto application.ComparisonDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))
	require.Len(t, dto.Routes, 4)
	assert.Empty(t, dto.Failures)
	for _, rt := range dto.Routes {
		require.Len(t, rt.Path, 2)
		assert.InDelta(t, leverkusen.Lat, rt.Path[0].Lat, 1e-5)
		assert.InDelta(t, solingen.Lng, rt.Path[1].Lng, 1e-5)
	}
}

func TestCompare_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		onRoute  func(url.Values) heretest.RouteReply
		wantCode int
		wantErr  string
	}{
		{"missing body fields", map[string]string{"start": "Leverkusen"}, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"blank start", application.CompareRequest{Start: "  ", End: "Solingen"}, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown address", application.CompareRequest{Start: "Leverkusen", End: "Atlantis"}, nil, http.StatusNotFound, "ADDRESS_NOT_FOUND"},
		{"routing unavailable", application.CompareRequest{Start: "Leverkusen", End: "Solingen"},
			func(url.Values) heretest.RouteReply { return heretest.RouteReply{Status: http.StatusServiceUnavailable} },
			http.StatusBadGateway, "ROUTE_TRANSPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, here := newTestRouter(t)
			if tt.onRoute != nil {
				here.OnRoute(tt.onRoute)
			}

			w := postJSON(t, r, "/api/v1/comparisons", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestCompare_AddressNotFoundIssuesNoRoutingRequests(t *testing.T) {
	r, here := newTestRouter(t)

	w := postJSON(t, r, "/api/v1/comparisons", application.CompareRequest{Start: "Leverkusen", End: "Atlantis"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(0), here.RouteCalls())
}

func TestCompareGeoJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(t, r, "/api/v1/comparisons/geojson", application.CompareRequest{Start: "Leverkusen", End: "Solingen"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 4+3)
	assert.Equal(t, "fastest", fc.Features[0].Properties["variant"])
}

func TestListVariants(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/variants", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var variants []application.VariantDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &variants))
	require.Len(t, variants, 4)
	assert.Equal(t, application.VariantDTO{Key: "no-motorway", DisplayName: "Avoid highways", Color: "green"}, variants[2])
}

func TestAdminStats_LogDisabled(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats/comparisons", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "LOG_DISABLED", decodeEnvelope(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/comparisons/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dialLive(t *testing.T, r http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/comparisons/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

type liveFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func TestLive_Compare(t *testing.T) {
	r, _ := newTestRouter(t)
	conn := dialLive(t, r)

	require.NoError(t, conn.WriteJSON(application.CompareRequest{Start: "Leverkusen", End: "Solingen"}))

	var frame liveFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, MessageResult, frame.Type)

	var dto application.ComparisonDTO
	require.NoError(t, json.Unmarshal(frame.Payload, &dto))
	assert.Len(t, dto.Routes, 4)
}

func TestLive_Errors(t *testing.T) {
	r, _ := newTestRouter(t)
	conn := dialLive(t, r)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var frame liveFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, MessageError, frame.Type)

	require.NoError(t, conn.WriteJSON(application.CompareRequest{Start: "Leverkusen", End: "Atlantis"}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, MessageError, frame.Type)

	var liveErr LiveError
	require.NoError(t, json.Unmarshal(frame.Payload, &liveErr))
	assert.Equal(t, "ADDRESS_NOT_FOUND", liveErr.Code)
	assert.Equal(t, route.CauseNotFound, liveErr.Message)
}
