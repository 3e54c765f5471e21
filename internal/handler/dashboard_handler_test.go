package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
)

type fakeDashboardSrv struct {
	resp *dto.FinanceDashboardResponse
	hit  bool
	err  error
}

func (f *fakeDashboardSrv) Finance(context.Context, string) (*dto.FinanceDashboardResponse, bool, error) {
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerFinanceRequiresYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/finance", nil)

	handler.Finance(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerFinanceSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		resp: &dto.FinanceDashboardResponse{
			AcademicYear: "2026/2027",
			Fees:         models.ClassFeeSummary{TotalFees: 18000, PaidFees: 11000},
			Alerts:       dto.FinanceAlerts{LowCollectionClasses: []string{"class-b"}},
		},
		hit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/finance?academicYear=2026/2027", nil)

	handler.Finance(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, "2026/2027", envelope.Data["academic_year"])
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *envelopeError         `json:"error"`
}

type envelopeError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}
