package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/middleware"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
	"github.com/noah-isme/school-finance-api/pkg/response"
)

type dashboardService interface {
	Finance(ctx context.Context, academicYear string) (*dto.FinanceDashboardResponse, bool, error)
}

// DashboardHandler wires the finance dashboard to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Finance godoc
// @Summary Finance dashboard
// @Description Per-class collection rates, low-collection alerts and payroll snapshot
// @Tags Dashboard
// @Produce json
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /dashboard/finance [get]
func (h *DashboardHandler) Finance(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	year := strings.TrimSpace(c.Query("academicYear"))
	if year == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academicYear is required"))
		return
	}

	start := time.Now()
	summary, cacheHit, err := h.service.Finance(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
