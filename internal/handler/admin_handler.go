package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminComparisonHandler handles admin HTTP requests over the comparison log.
type AdminComparisonHandler struct {
	service *application.ComparisonService
}

// NewAdminComparisonHandler creates a new AdminComparisonHandler.
func NewAdminComparisonHandler(service *application.ComparisonService) *AdminComparisonHandler {
	return &AdminComparisonHandler{service: service}
}

// RegisterRoutes registers admin comparison routes.
func (h *AdminComparisonHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/comparisons", h.ListComparisons)
		admin.GET("/comparisons/:id", h.GetComparison)
		admin.GET("/stats/comparisons", h.ComparisonStats)
	}
}

// ListComparisons handles GET /api/v1/admin/comparisons.
func (h *AdminComparisonHandler) ListComparisons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.service.RecentComparisons(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	dtos := make([]*application.ComparisonLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = application.ToComparisonLogDTO(e)
	}
	response.Paginated(c, dtos, total, page, limit)
}

// GetComparison handles GET /api/v1/admin/comparisons/:id.
func (h *AdminComparisonHandler) GetComparison(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid comparison ID")
		return
	}

	entry, err := h.service.FindComparison(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, application.ToComparisonLogDTO(entry))
}

// ComparisonStats handles GET /api/v1/admin/stats/comparisons.
func (h *AdminComparisonHandler) ComparisonStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, stats)
}

func (h *AdminComparisonHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, application.ErrLogDisabled) {
		response.Fail(c, http.StatusServiceUnavailable, "LOG_DISABLED", err.Error())
		return
	}
	response.Error(c, err)
}
