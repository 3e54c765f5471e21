package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/middleware"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
	"github.com/noah-isme/school-finance-api/pkg/response"
)

type feePlanService interface {
	Upsert(ctx context.Context, req dto.UpsertFeeStructureRequest) (*dto.FeeStructureResponse, error)
	Active(ctx context.Context, classID, academicYear string) (*dto.FeeStructureResponse, error)
}

type feeService interface {
	ClassSummary(ctx context.Context, classID, academicYear string) (*dto.ClassSummaryResponse, bool, error)
	ListRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, *models.Pagination, error)
	RecordDetail(ctx context.Context, feeID string) (*models.FeeRecord, []models.Payment, float64, error)
	Pay(ctx context.Context, feeID string, req dto.PayFeeRequest) (*dto.PayFeeResponse, error)
}

// FeeHandler wires fee structures, records and payments to HTTP endpoints.
type FeeHandler struct {
	plans feePlanService
	fees  feeService
}

// NewFeeHandler constructs the handler.
func NewFeeHandler(plans feePlanService, fees feeService) *FeeHandler {
	return &FeeHandler{plans: plans, fees: fees}
}

// UpsertStructure godoc
// @Summary Create or replace a class fee structure
// @Description Supersedes the active structure for the class/year pair
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.UpsertFeeStructureRequest true "Fee structure"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/structures [post]
func (h *FeeHandler) UpsertStructure(c *gin.Context) {
	var req dto.UpsertFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee structure payload"))
		return
	}

	res, err := h.plans.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// ActiveStructure godoc
// @Summary Get the active fee structure for a class
// @Tags Fees
// @Produce json
// @Param classId query string true "Class ID"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/structures [get]
func (h *FeeHandler) ActiveStructure(c *gin.Context) {
	classID := strings.TrimSpace(c.Query("classId"))
	year := strings.TrimSpace(c.Query("academicYear"))
	if classID == "" || year == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId and academicYear are required"))
		return
	}

	res, err := h.plans.Active(c.Request.Context(), classID, year)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ListRecords godoc
// @Summary List fee records
// @Tags Fees
// @Produce json
// @Param classId query string false "Class ID"
// @Param studentId query string false "Student ID"
// @Param academicYear query string false "Academic year"
// @Param status query string false "unpaid | partial | paid"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees/records [get]
func (h *FeeHandler) ListRecords(c *gin.Context) {
	filter := models.FeeRecordFilter{
		ClassID:      strings.TrimSpace(c.Query("classId")),
		StudentID:    strings.TrimSpace(c.Query("studentId")),
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.FeeStatus(raw)
		switch status {
		case models.FeeUnpaid, models.FeePartial, models.FeePaid:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be unpaid, partial or paid"))
			return
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	// Students only see their own records.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}

	records, pagination, err := h.fees.ListRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, pagination)
}

// RecordDetail godoc
// @Summary Get one fee record with its payments
// @Tags Fees
// @Produce json
// @Param id path string true "Fee record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/records/{id} [get]
func (h *FeeHandler) RecordDetail(c *gin.Context) {
	record, payments, outstanding, err := h.fees.RecordDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && record.StudentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"record":      record,
		"payments":    payments,
		"outstanding": outstanding,
	}, nil)
}

// Pay godoc
// @Summary Apply a payment against a fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee record ID"
// @Param payload body dto.PayFeeRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/records/{id}/payments [post]
func (h *FeeHandler) Pay(c *gin.Context) {
	var req dto.PayFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CollectedBy = claims.UserID
	}

	res, err := h.fees.Pay(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ClassSummary godoc
// @Summary Reconciled fee summary for a class
// @Tags Fees
// @Produce json
// @Param id path string true "Class ID"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /fees/classes/{id}/summary [get]
func (h *FeeHandler) ClassSummary(c *gin.Context) {
	year := strings.TrimSpace(c.Query("academicYear"))
	if year == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academicYear is required"))
		return
	}

	summary, cacheHit, err := h.fees.ClassSummary(c.Request.Context(), c.Param("id"), year)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
