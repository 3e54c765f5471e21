package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/middleware"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type fakeStatementSrv struct {
	queueResp    *dto.StatementJobResponse
	queueErr     error
	statusResp   *dto.StatementStatusResponse
	statusErr    error
	jobs         []models.StatementJob
	downloadPath string
	downloadErr  error
	artifactRoot string
}

func (f *fakeStatementSrv) Queue(context.Context, string, dto.StatementRequest) (*dto.StatementJobResponse, error) {
	return f.queueResp, f.queueErr
}

func (f *fakeStatementSrv) Status(context.Context, string) (*dto.StatementStatusResponse, error) {
	return f.statusResp, f.statusErr
}

func (f *fakeStatementSrv) List(context.Context, string, int) ([]models.StatementJob, error) {
	return f.jobs, nil
}

func (f *fakeStatementSrv) Download(context.Context, string) (string, string, error) {
	if f.downloadErr != nil {
		return "", "", f.downloadErr
	}
	return "job-1", f.downloadPath, nil
}

func (f *fakeStatementSrv) OpenArtifact(relPath string) (*os.File, error) {
	return os.Open(filepath.Join(f.artifactRoot, relPath))
}

func TestStatementHandlerQueueRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{})

	body, _ := json.Marshal(dto.StatementRequest{Type: models.StatementPayrollRegister, Format: models.StatementFormatCSV})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/statements", bytes.NewReader(body))

	handler.Queue(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatementHandlerQueueAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{
		queueResp: &dto.StatementJobResponse{ID: "job-1", Status: models.StatementQueued},
	})

	body, _ := json.Marshal(dto.StatementRequest{Type: models.StatementPayrollRegister, Format: models.StatementFormatCSV})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/statements", bytes.NewReader(body))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", Role: models.RoleBursar})

	handler.Queue(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "job-1", envelope.Data["id"])
}

func TestStatementHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{
		downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/download/bad-token", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad-token"}}

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatementHandlerDownloadStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "payroll.csv"), []byte("Staff Name,Monthly Salary\n"), 0o644))
	handler := NewStatementHandler(&fakeStatementSrv{
		downloadPath: "payroll.csv",
		artifactRoot: root,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/download/good-token", nil)
	c.Params = gin.Params{{Key: "token", Value: "good-token"}}

	handler.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payroll.csv")
	assert.Contains(t, rec.Body.String(), "Staff Name")
}

func TestStatementHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{
		statusErr: appErrors.Clone(appErrors.ErrNotFound, "statement job not found"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Status(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
