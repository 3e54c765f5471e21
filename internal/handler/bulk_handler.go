package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-finance-api/internal/dto"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
	"github.com/noah-isme/school-finance-api/pkg/response"
)

type bulkOpsService interface {
	ActivateStudents(ctx context.Context, req dto.BulkActivateStudentsRequest) (*dto.BulkOutcomeResponse, error)
	GenerateClassFees(ctx context.Context, req dto.BulkGenerateFeesRequest) (*dto.BulkOutcomeResponse, error)
	SetUsersActive(ctx context.Context, req dto.BulkSetUserActiveRequest) (*dto.BulkOutcomeResponse, error)
}

// BulkHandler wires bulk operations to HTTP endpoints. Partial failure is a
// 200 with per-item accounting, not an error.
type BulkHandler struct {
	service bulkOpsService
}

// NewBulkHandler constructs the handler.
func NewBulkHandler(service bulkOpsService) *BulkHandler {
	return &BulkHandler{service: service}
}

// ActivateStudents godoc
// @Summary Activate student accounts in bulk
// @Description Empty student list targets every inactive student
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkActivateStudentsRequest true "Student IDs"
// @Success 200 {object} response.Envelope
// @Router /bulk/students/activate [post]
func (h *BulkHandler) ActivateStudents(c *gin.Context) {
	var req dto.BulkActivateStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.ActivateStudents(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// GenerateFees godoc
// @Summary Generate fee records for every class in a year
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkGenerateFeesRequest true "Year and fee type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bulk/fees/generate [post]
func (h *BulkHandler) GenerateFees(c *gin.Context) {
	var req dto.BulkGenerateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.GenerateClassFees(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// SetUsersActive godoc
// @Summary Activate or deactivate user accounts in bulk
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkSetUserActiveRequest true "User IDs and target state"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bulk/users/active [post]
func (h *BulkHandler) SetUsersActive(c *gin.Context) {
	var req dto.BulkSetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.SetUsersActive(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
