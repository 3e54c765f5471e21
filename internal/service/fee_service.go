package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/finance"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type feeRecordStore interface {
	CreateRecord(ctx context.Context, record *models.FeeRecord) error
	FindRecord(ctx context.Context, id string) (*models.FeeRecord, error)
	ListRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, int, error)
	AllRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, error)
	UpdateRecordStatus(ctx context.Context, id string, status models.FeeStatus) error
}

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	ListByFee(ctx context.Context, feeID string) ([]models.Payment, error)
	ListByFeeIDs(ctx context.Context, feeIDs []string) ([]models.Payment, error)
}

// FeeServiceConfig tunes reconciliation behaviour.
type FeeServiceConfig struct {
	SummaryCacheTTL time.Duration
}

// FeeService reconciles fee records against payments and applies new payments.
type FeeService struct {
	records  feeRecordStore
	payments paymentStore
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	cfg      FeeServiceConfig
}

// FeeServiceParams groups constructor dependencies.
type FeeServiceParams struct {
	Records  feeRecordStore
	Payments paymentStore
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   FeeServiceConfig
}

// NewFeeService constructs a FeeService with sane defaults.
func NewFeeService(params FeeServiceParams) *FeeService {
	cfg := params.Config
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		records:  params.Records,
		payments: params.Payments,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// ClassSummary reconciles every live fee record of a class against its
// payments. The second return value reports cache utilisation.
func (s *FeeService) ClassSummary(ctx context.Context, classID, academicYear string) (*dto.ClassSummaryResponse, bool, error) {
	if classID == "" || academicYear == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class_id and academic_year are required")
	}

	cacheKey := ClassSummaryKey(classID, academicYear)
	if s.cache != nil {
		var cached dto.ClassSummaryResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	records, err := s.records.AllRecords(ctx, models.FeeRecordFilter{
		ClassID:      classID,
		AcademicYear: academicYear,
	})
	if err != nil {
		return nil, false, err
	}

	feeIDs := make([]string, 0, len(records))
	for _, record := range records {
		feeIDs = append(feeIDs, record.ID)
	}
	payments, err := s.payments.ListByFeeIDs(ctx, feeIDs)
	if err != nil {
		return nil, false, err
	}

	summary := finance.Reconcile(records, payments, s.now().UTC())
	summary.ClassID = classID
	summary.AcademicYear = academicYear

	resp := &dto.ClassSummaryResponse{Summary: summary, AsOf: s.now().UTC()}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.SummaryCacheTTL); err != nil {
			s.logger.Warn("class summary cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

// ListRecords returns fee records matching the filter with pagination metadata.
func (s *FeeService) ListRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, *models.Pagination, error) {
	records, total, err := s.records.ListRecords(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordDetail returns one record, its payments and the remaining balance.
func (s *FeeService) RecordDetail(ctx context.Context, feeID string) (*models.FeeRecord, []models.Payment, float64, error) {
	record, err := s.records.FindRecord(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, 0, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, nil, 0, err
	}
	payments, err := s.payments.ListByFee(ctx, feeID)
	if err != nil {
		return nil, nil, 0, err
	}
	return record, payments, finance.Outstanding(*record, payments), nil
}

// Pay applies a payment against a fee record. A settled record rejects
// further payments; partial payments move the record to partial status.
func (s *FeeService) Pay(ctx context.Context, feeID string, req dto.PayFeeRequest) (*dto.PayFeeResponse, error) {
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}
	if !models.ValidPaymentMethod(req.Method) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment method %q", req.Method))
	}

	record, err := s.records.FindRecord(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, err
	}
	if record.Superseded {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee record has been superseded")
	}

	payments, err := s.payments.ListByFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if finance.Outstanding(*record, payments) <= 0 {
		return nil, appErrors.ErrFeeSettled
	}

	receiptNo := strings.TrimSpace(req.ReceiptNo)
	if receiptNo == "" {
		receiptNo = "RCPT-" + strings.ToUpper(uuid.NewString()[:8])
	}
	payment := &models.Payment{
		FeeID:       feeID,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      models.PaymentCompleted,
		ReceiptNo:   receiptNo,
		CollectedBy: req.CollectedBy,
		PaidAt:      s.now().UTC(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	payments = append(payments, *payment)
	status := finance.RecordStatus(*record, payments)
	if status != record.Status {
		if err := s.records.UpdateRecordStatus(ctx, record.ID, status); err != nil {
			return nil, fmt.Errorf("update fee status: %w", err)
		}
		record.Status = status
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(string(payment.Method), payment.Amount)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ClassSummaryKey(record.ClassID, record.AcademicYear)); err != nil {
			s.logger.Warn("class summary cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("fee payment recorded",
		zap.String("fee_id", record.ID),
		zap.String("receipt_no", payment.ReceiptNo),
		zap.Float64("amount", payment.Amount),
		zap.String("status", string(record.Status)))

	return &dto.PayFeeResponse{
		Record:      *record,
		Payment:     *payment,
		Outstanding: finance.Outstanding(*record, payments),
	}, nil
}
