package handler

import (
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/export"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/response"
	"github.com/gin-gonic/gin"
)

// ComparisonHandler handles HTTP requests for route comparisons.
type ComparisonHandler struct {
	service *application.ComparisonService
}

// NewComparisonHandler creates a new ComparisonHandler.
func NewComparisonHandler(service *application.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{service: service}
}

// RegisterRoutes registers comparison routes on the given router group.
func (h *ComparisonHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api/v1")
	{
		api.POST("/comparisons", h.Compare)
		api.POST("/comparisons/geojson", h.CompareGeoJSON)
		api.GET("/variants", h.ListVariants)
	}
}

// Compare handles POST /api/v1/comparisons.
func (h *ComparisonHandler) Compare(c *gin.Context) {
	var req application.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "start and end are required")
		return
	}

	result, err := h.service.Compare(c.Request.Context(), req.Start, req.End)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, application.ToComparisonDTO(result))
}

// CompareGeoJSON handles POST /api/v1/comparisons/geojson.
func (h *ComparisonHandler) CompareGeoJSON(c *gin.Context) {
	var req application.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "start and end are required")
		return
	}

	result, err := h.service.Compare(c.Request.Context(), req.Start, req.End)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := export.Marshal(result)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// ListVariants handles GET /api/v1/variants.
func (h *ComparisonHandler) ListVariants(c *gin.Context) {
	response.Success(c, application.ToVariantDTOs(h.service.Catalog()))
}
