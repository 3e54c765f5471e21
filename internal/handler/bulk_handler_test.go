package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/bulk"
	"github.com/noah-isme/school-finance-api/internal/dto"
)

type fakeBulkSrv struct {
	resp *dto.BulkOutcomeResponse
	err  error
}

func (f *fakeBulkSrv) ActivateStudents(context.Context, dto.BulkActivateStudentsRequest) (*dto.BulkOutcomeResponse, error) {
	return f.resp, f.err
}

func (f *fakeBulkSrv) GenerateClassFees(context.Context, dto.BulkGenerateFeesRequest) (*dto.BulkOutcomeResponse, error) {
	return f.resp, f.err
}

func (f *fakeBulkSrv) SetUsersActive(context.Context, dto.BulkSetUserActiveRequest) (*dto.BulkOutcomeResponse, error) {
	return f.resp, f.err
}

func TestBulkHandlerActivateStudentsPartialFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBulkHandler(&fakeBulkSrv{
		resp: &dto.BulkOutcomeResponse{Outcome: bulk.Outcome{
			Succeeded:    []string{"st-1", "st-3"},
			Failed:       []bulk.ItemFailure{{ItemID: "st-2", Reason: "student not found"}},
			SuccessCount: 2,
			FailureCount: 1,
		}},
	})

	body, _ := json.Marshal(dto.BulkActivateStudentsRequest{StudentIDs: []string{"st-1", "st-2", "st-3"}})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bulk/students/activate", bytes.NewReader(body))

	handler.ActivateStudents(c)

	// Partial failure is still a 200 with per-item accounting.
	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	outcome, ok := envelope.Data["outcome"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), outcome["success_count"])
	assert.Equal(t, float64(1), outcome["failure_count"])
}

func TestBulkHandlerGenerateFeesInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBulkHandler(&fakeBulkSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bulk/fees/generate", bytes.NewReader([]byte("{bad")))

	handler.GenerateFees(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkHandlerSetUsersActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBulkHandler(&fakeBulkSrv{
		resp: &dto.BulkOutcomeResponse{Outcome: bulk.Outcome{Succeeded: []string{"u-1"}, SuccessCount: 1}},
	})

	body, _ := json.Marshal(dto.BulkSetUserActiveRequest{UserIDs: []string{"u-1"}, Active: false})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bulk/users/active", bytes.NewReader(body))

	handler.SetUsersActive(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
