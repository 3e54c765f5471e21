package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
	"github.com/noah-isme/school-finance-api/pkg/response"
)

type payrollService interface {
	Summary(ctx context.Context) (models.PayrollSummary, error)
	List(ctx context.Context) ([]models.SalaryRecord, error)
	Add(ctx context.Context, record *models.SalaryRecord) (*dto.SalaryRecordResponse, error)
	ProcessAll(ctx context.Context) (*dto.PayrollActionResponse, error)
	UndoAll(ctx context.Context) (*dto.PayrollActionResponse, error)
	ProcessOne(ctx context.Context, id string) (*dto.SalaryRecordResponse, error)
	UndoOne(ctx context.Context, id string) (*dto.SalaryRecordResponse, error)
	EditSalary(ctx context.Context, id string, req dto.EditSalaryRequest) (*dto.SalaryRecordResponse, error)
}

// PayrollHandler wires the payroll ledger to HTTP endpoints.
type PayrollHandler struct {
	service payrollService
}

// NewPayrollHandler constructs the handler.
func NewPayrollHandler(service payrollService) *PayrollHandler {
	return &PayrollHandler{service: service}
}

// Summary godoc
// @Summary Payroll ledger aggregates
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/summary [get]
func (h *PayrollHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary List active salary records
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/salaries [get]
func (h *PayrollHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Add godoc
// @Summary Add a staff salary record
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body models.SalaryRecord true "Salary record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payroll/salaries [post]
func (h *PayrollHandler) Add(c *gin.Context) {
	var record models.SalaryRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid salary payload"))
		return
	}

	res, err := h.service.Add(c.Request.Context(), &record)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ProcessAll godoc
// @Summary Mark every pending salary as paid
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/process [post]
func (h *PayrollHandler) ProcessAll(c *gin.Context) {
	res, err := h.service.ProcessAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UndoAll godoc
// @Summary Revert every paid salary to pending
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/undo [post]
func (h *PayrollHandler) UndoAll(c *gin.Context) {
	res, err := h.service.UndoAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ProcessOne godoc
// @Summary Mark one salary as paid
// @Tags Payroll
// @Produce json
// @Param id path string true "Salary record ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payroll/salaries/{id}/process [post]
func (h *PayrollHandler) ProcessOne(c *gin.Context) {
	res, err := h.service.ProcessOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UndoOne godoc
// @Summary Revert one salary to pending
// @Tags Payroll
// @Produce json
// @Param id path string true "Salary record ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payroll/salaries/{id}/undo [post]
func (h *PayrollHandler) UndoOne(c *gin.Context) {
	res, err := h.service.UndoOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// EditSalary godoc
// @Summary Update a staff member's monthly salary
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Salary record ID"
// @Param payload body dto.EditSalaryRequest true "New salary"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payroll/salaries/{id} [put]
func (h *PayrollHandler) EditSalary(c *gin.Context) {
	var req dto.EditSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid salary payload"))
		return
	}

	res, err := h.service.EditSalary(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
