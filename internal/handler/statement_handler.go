package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
	"github.com/noah-isme/school-finance-api/pkg/response"
)

type statementService interface {
	Queue(ctx context.Context, userID string, req dto.StatementRequest) (*dto.StatementJobResponse, error)
	Status(ctx context.Context, id string) (*dto.StatementStatusResponse, error)
	List(ctx context.Context, userID string, limit int) ([]models.StatementJob, error)
	Download(ctx context.Context, token string) (string, string, error)
	OpenArtifact(relPath string) (*os.File, error)
}

// StatementHandler wires asynchronous statement exports to HTTP endpoints.
type StatementHandler struct {
	service statementService
}

// NewStatementHandler constructs the handler.
func NewStatementHandler(service statementService) *StatementHandler {
	return &StatementHandler{service: service}
}

// Queue godoc
// @Summary Queue a statement export
// @Description Accepts the job and returns its ID; generation runs in the background
// @Tags Statements
// @Accept json
// @Produce json
// @Param payload body dto.StatementRequest true "Statement request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /statements [post]
func (h *StatementHandler) Queue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.StatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statement payload"))
		return
	}

	res, err := h.service.Queue(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, res, nil)
}

// Status godoc
// @Summary Statement job status
// @Tags Statements
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /statements/{id} [get]
func (h *StatementHandler) Status(c *gin.Context) {
	res, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// List godoc
// @Summary List the caller's statement jobs
// @Tags Statements
// @Produce json
// @Param limit query int false "Max jobs to return"
// @Success 200 {object} response.Envelope
// @Router /statements [get]
func (h *StatementHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.service.List(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a finished statement via signed token
// @Tags Statements
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /statements/download/{token} [get]
func (h *StatementHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	_, relPath, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.service.OpenArtifact(relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open statement file"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat statement file"))
		return
	}

	filename := filepath.Base(relPath)
	mimeType := "application/octet-stream"
	switch filepath.Ext(filename) {
	case ".csv":
		mimeType = "text/csv"
	case ".pdf":
		mimeType = "application/pdf"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeType, file, nil)
}
