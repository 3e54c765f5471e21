package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type salaryStore interface {
	Create(ctx context.Context, record *models.SalaryRecord) error
	FindByID(ctx context.Context, id string) (*models.SalaryRecord, error)
	ListActive(ctx context.Context) ([]models.SalaryRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.SalaryStatus, paymentDate *time.Time) error
	TransitionAll(ctx context.Context, from, to models.SalaryStatus, paymentDate *time.Time) ([]float64, error)
	UpdateAmount(ctx context.Context, id string, amount float64) error
}

// PayrollServiceConfig bounds salary amounts.
type PayrollServiceConfig struct {
	MaxMonthlySalary float64
}

// PayrollService is the payroll ledger. It keeps the monthly aggregates in
// memory, guarded by a mutex so concurrent transitions serialise; every
// transition updates the aggregates by the amounts actually moved rather
// than recounting, preserving pending + paid == monthly payroll.
type PayrollService struct {
	salaries salaryStore
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	cfg      PayrollServiceConfig

	mu      sync.Mutex
	summary models.PayrollSummary
	loaded  bool
}

// PayrollServiceParams groups constructor dependencies.
type PayrollServiceParams struct {
	Salaries salaryStore
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   PayrollServiceConfig
}

// NewPayrollService constructs a PayrollService with sane defaults.
func NewPayrollService(params PayrollServiceParams) *PayrollService {
	cfg := params.Config
	if cfg.MaxMonthlySalary <= 0 {
		cfg.MaxMonthlySalary = 1000000
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{
		salaries: params.Salaries,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// ensureLoaded builds the aggregates from the active records once.
// Callers must hold the mutex.
func (s *PayrollService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	records, err := s.salaries.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load payroll ledger: %w", err)
	}
	summary := models.PayrollSummary{}
	for _, record := range records {
		summary.MonthlyPayroll += record.MonthlySalary
		switch record.PaymentStatus {
		case models.SalaryPaid:
			summary.PaidThisMonth += record.MonthlySalary
			summary.PaidCount++
		default:
			summary.PendingPayments += record.MonthlySalary
			summary.PendingCount++
		}
	}
	s.summary = summary
	s.loaded = true
	return nil
}

// Summary returns the current ledger aggregates.
func (s *PayrollService) Summary(ctx context.Context) (models.PayrollSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return models.PayrollSummary{}, err
	}
	return s.summary, nil
}

// List returns every active salary record.
func (s *PayrollService) List(ctx context.Context) ([]models.SalaryRecord, error) {
	return s.salaries.ListActive(ctx)
}

// Add registers a new active staff salary in pending state.
func (s *PayrollService) Add(ctx context.Context, record *models.SalaryRecord) (*dto.SalaryRecordResponse, error) {
	if record.MonthlySalary <= 0 || record.MonthlySalary > s.cfg.MaxMonthlySalary {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("monthly salary must be between 0 and %.2f", s.cfg.MaxMonthlySalary))
	}
	record.Active = true
	record.PaymentStatus = models.SalaryPending

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := s.salaries.Create(ctx, record); err != nil {
		return nil, err
	}
	s.summary.MonthlyPayroll += record.MonthlySalary
	s.summary.PendingPayments += record.MonthlySalary
	s.summary.PendingCount++
	s.publishAmounts()

	return &dto.SalaryRecordResponse{Record: *record, Summary: s.summary}, nil
}

// ProcessAll pays every pending salary. An empty pending set is reported as
// a no-op, not an error.
func (s *PayrollService) ProcessAll(ctx context.Context) (*dto.PayrollActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	paidAt := s.now().UTC()
	amounts, err := s.salaries.TransitionAll(ctx, models.SalaryPending, models.SalaryPaid, &paidAt)
	if err != nil {
		return nil, err
	}
	total := sum(amounts)
	s.summary.PendingPayments -= total
	s.summary.PaidThisMonth += total
	s.summary.PendingCount -= len(amounts)
	s.summary.PaidCount += len(amounts)
	s.publishAmounts()

	s.logger.Info("payroll processed",
		zap.Int("transitioned", len(amounts)),
		zap.Float64("total", total))

	return &dto.PayrollActionResponse{
		Transitioned: len(amounts),
		TotalAmount:  total,
		NothingToDo:  len(amounts) == 0,
		Summary:      s.summary,
	}, nil
}

// UndoAll reverts every paid salary back to pending.
func (s *PayrollService) UndoAll(ctx context.Context) (*dto.PayrollActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	amounts, err := s.salaries.TransitionAll(ctx, models.SalaryPaid, models.SalaryPending, nil)
	if err != nil {
		return nil, err
	}
	total := sum(amounts)
	s.summary.PaidThisMonth -= total
	s.summary.PendingPayments += total
	s.summary.PaidCount -= len(amounts)
	s.summary.PendingCount += len(amounts)
	s.publishAmounts()

	s.logger.Info("payroll undone",
		zap.Int("transitioned", len(amounts)),
		zap.Float64("total", total))

	return &dto.PayrollActionResponse{
		Transitioned: len(amounts),
		TotalAmount:  total,
		NothingToDo:  len(amounts) == 0,
		Summary:      s.summary,
	}, nil
}

// ProcessOne pays a single pending salary.
func (s *PayrollService) ProcessOne(ctx context.Context, id string) (*dto.SalaryRecordResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	record, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.PaymentStatus == models.SalaryPaid {
		return nil, appErrors.ErrAlreadyPaid
	}

	paidAt := s.now().UTC()
	if err := s.salaries.UpdateStatus(ctx, id, models.SalaryPaid, &paidAt); err != nil {
		return nil, err
	}
	record.PaymentStatus = models.SalaryPaid
	record.LastPaymentDate = &paidAt

	s.summary.PendingPayments -= record.MonthlySalary
	s.summary.PaidThisMonth += record.MonthlySalary
	s.summary.PendingCount--
	s.summary.PaidCount++
	s.publishAmounts()

	return &dto.SalaryRecordResponse{Record: *record, Summary: s.summary}, nil
}

// UndoOne reverts a single paid salary back to pending.
func (s *PayrollService) UndoOne(ctx context.Context, id string) (*dto.SalaryRecordResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	record, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.PaymentStatus == models.SalaryPending {
		return nil, appErrors.ErrAlreadyPending
	}

	if err := s.salaries.UpdateStatus(ctx, id, models.SalaryPending, nil); err != nil {
		return nil, err
	}
	record.PaymentStatus = models.SalaryPending
	record.LastPaymentDate = nil

	s.summary.PaidThisMonth -= record.MonthlySalary
	s.summary.PendingPayments += record.MonthlySalary
	s.summary.PaidCount--
	s.summary.PendingCount++
	s.publishAmounts()

	return &dto.SalaryRecordResponse{Record: *record, Summary: s.summary}, nil
}

// EditSalary changes a staff member's monthly salary. The aggregates are
// adjusted by the signed difference so the record's current payment state
// keeps the ledger invariant intact.
func (s *PayrollService) EditSalary(ctx context.Context, id string, req dto.EditSalaryRequest) (*dto.SalaryRecordResponse, error) {
	if req.MonthlySalary <= 0 || req.MonthlySalary > s.cfg.MaxMonthlySalary {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("monthly salary must be between 0 and %.2f", s.cfg.MaxMonthlySalary))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	record, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	delta := req.MonthlySalary - record.MonthlySalary
	if err := s.salaries.UpdateAmount(ctx, id, req.MonthlySalary); err != nil {
		return nil, err
	}
	record.MonthlySalary = req.MonthlySalary

	s.summary.MonthlyPayroll += delta
	if record.PaymentStatus == models.SalaryPaid {
		s.summary.PaidThisMonth += delta
	} else {
		s.summary.PendingPayments += delta
	}
	s.publishAmounts()

	s.logger.Info("salary edited",
		zap.String("salary_id", id),
		zap.Float64("delta", delta))

	return &dto.SalaryRecordResponse{Record: *record, Summary: s.summary}, nil
}

func (s *PayrollService) findActive(ctx context.Context, id string) (*models.SalaryRecord, error) {
	record, err := s.salaries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "salary record not found")
		}
		return nil, err
	}
	if !record.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "salary record is inactive")
	}
	return record, nil
}

func (s *PayrollService) publishAmounts() {
	if s.metrics != nil {
		s.metrics.SetPayrollAmounts(s.summary.PendingPayments, s.summary.PaidThisMonth)
	}
}

func sum(amounts []float64) float64 {
	var total float64
	for _, amount := range amounts {
		total += amount
	}
	return total
}
