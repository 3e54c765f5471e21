package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/middleware"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type fakePlanSrv struct {
	upsertResp *dto.FeeStructureResponse
	upsertErr  error
	activeResp *dto.FeeStructureResponse
	activeErr  error
}

func (f *fakePlanSrv) Upsert(context.Context, dto.UpsertFeeStructureRequest) (*dto.FeeStructureResponse, error) {
	return f.upsertResp, f.upsertErr
}

func (f *fakePlanSrv) Active(context.Context, string, string) (*dto.FeeStructureResponse, error) {
	return f.activeResp, f.activeErr
}

type fakeFeeSrv struct {
	summaryResp *dto.ClassSummaryResponse
	summaryHit  bool
	summaryErr  error
	records     []models.FeeRecord
	pagination  *models.Pagination
	listErr     error
	lastFilter  models.FeeRecordFilter
	payResp     *dto.PayFeeResponse
	payErr      error
	lastPay     dto.PayFeeRequest
}

func (f *fakeFeeSrv) ClassSummary(context.Context, string, string) (*dto.ClassSummaryResponse, bool, error) {
	return f.summaryResp, f.summaryHit, f.summaryErr
}

func (f *fakeFeeSrv) ListRecords(_ context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, *models.Pagination, error) {
	f.lastFilter = filter
	return f.records, f.pagination, f.listErr
}

func (f *fakeFeeSrv) RecordDetail(context.Context, string) (*models.FeeRecord, []models.Payment, float64, error) {
	if len(f.records) == 0 {
		return nil, nil, 0, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
	}
	return &f.records[0], nil, 0, nil
}

func (f *fakeFeeSrv) Pay(_ context.Context, _ string, req dto.PayFeeRequest) (*dto.PayFeeResponse, error) {
	f.lastPay = req
	return f.payResp, f.payErr
}

func TestFeeHandlerUpsertStructure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{
		upsertResp: &dto.FeeStructureResponse{ID: "fs-1", TotalFee: 3600},
	}, &fakeFeeSrv{})

	body, _ := json.Marshal(dto.UpsertFeeStructureRequest{
		ClassID:      "class-1",
		AcademicYear: "2026/2027",
		TuitionFee:   2500,
		DueDate:      time.Now().Add(30 * 24 * time.Hour),
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/fees/structures", bytes.NewReader(body))

	handler.UpsertStructure(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestFeeHandlerUpsertStructureInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{}, &fakeFeeSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/fees/structures", bytes.NewReader([]byte("{not json")))

	handler.UpsertStructure(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeeHandlerUpsertStructureFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fields := appErrors.FieldErrors{}
	fields.Add("extracurricular.robotics", "unknown fee category")
	handler := NewFeeHandler(&fakePlanSrv{upsertErr: fields.AsError()}, &fakeFeeSrv{})

	body, _ := json.Marshal(dto.UpsertFeeStructureRequest{ClassID: "class-1", AcademicYear: "2026/2027", DueDate: time.Now()})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/fees/structures", bytes.NewReader(body))

	handler.UpsertStructure(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Contains(t, envelope.Error.Fields, "extracurricular.robotics")
}

func TestFeeHandlerActiveStructureRequiresParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{}, &fakeFeeSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/fees/structures?classId=class-1", nil)

	handler.ActiveStructure(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeeHandlerListRecordsScopesStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feeSrv := &fakeFeeSrv{records: []models.FeeRecord{{ID: "fee-1", StudentID: "student-7"}}}
	handler := NewFeeHandler(&fakePlanSrv{}, feeSrv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/fees/records?studentId=someone-else", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-7", Role: models.RoleStudent})

	handler.ListRecords(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-7", feeSrv.lastFilter.StudentID)
}

func TestFeeHandlerListRecordsRejectsBadStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{}, &fakeFeeSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/fees/records?status=overdue", nil)

	handler.ListRecords(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeeHandlerPaySettledConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{}, &fakeFeeSrv{
		payErr: appErrors.Clone(appErrors.ErrFeeSettled, ""),
	})

	body, _ := json.Marshal(dto.PayFeeRequest{Amount: 100, Method: models.MethodCash})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/fees/records/fee-1/payments", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "fee-1"}}

	handler.Pay(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrFeeSettled.Code, envelope.Error.Code)
}

func TestFeeHandlerPayStampsCollector(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feeSrv := &fakeFeeSrv{payResp: &dto.PayFeeResponse{Outstanding: 600}}
	handler := NewFeeHandler(&fakePlanSrv{}, feeSrv)

	body, _ := json.Marshal(dto.PayFeeRequest{Amount: 400, Method: models.MethodOnline})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/fees/records/fee-1/payments", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "id", Value: "fee-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", Role: models.RoleBursar})

	handler.Pay(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bursar-1", feeSrv.lastPay.CollectedBy)
}

func TestFeeHandlerClassSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(&fakePlanSrv{}, &fakeFeeSrv{
		summaryResp: &dto.ClassSummaryResponse{Summary: models.ClassFeeSummary{TotalFees: 3000, PaidFees: 2000}},
		summaryHit:  true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/fees/classes/class-1/summary?academicYear=2026/2027", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.ClassSummary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}
