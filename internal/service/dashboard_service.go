package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type classSummaryProvider interface {
	ClassSummary(ctx context.Context, classID, academicYear string) (*dto.ClassSummaryResponse, bool, error)
}

type payrollSummaryProvider interface {
	Summary(ctx context.Context) (models.PayrollSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL              time.Duration
	LowCollectionAlertPct float64
}

// DashboardService composes the principal-facing finance overview.
type DashboardService struct {
	classes classYearLister
	fees    classSummaryProvider
	payroll payrollSummaryProvider
	cache   *CacheService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Classes classYearLister
	Fees    classSummaryProvider
	Payroll payrollSummaryProvider
	Cache   *CacheService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LowCollectionAlertPct <= 0 {
		cfg.LowCollectionAlertPct = 60
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		classes: params.Classes,
		fees:    params.Fees,
		payroll: params.Payroll,
		cache:   params.Cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Finance returns the finance dashboard for an academic year and indicates
// cache utilisation.
func (s *DashboardService) Finance(ctx context.Context, academicYear string) (*dto.FinanceDashboardResponse, bool, error) {
	if academicYear == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "academic_year is required")
	}

	cacheKey := DashboardKey(academicYear)
	if s.cache != nil {
		var cached dto.FinanceDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	classes, err := s.classes.ListByYear(ctx, academicYear)
	if err != nil {
		return nil, false, err
	}

	overall := models.ClassFeeSummary{AcademicYear: academicYear}
	byClass := make([]dto.ClassCollection, 0, len(classes))
	alerts := dto.FinanceAlerts{}

	for _, class := range classes {
		resp, _, err := s.fees.ClassSummary(ctx, class.ID, academicYear)
		if err != nil {
			return nil, false, err
		}
		summary := resp.Summary
		overall.TotalFees += summary.TotalFees
		overall.PaidFees += summary.PaidFees
		overall.PendingFees += summary.PendingFees
		overall.OverdueFees += summary.OverdueFees
		overall.RecordCount += summary.RecordCount

		byClass = append(byClass, dto.ClassCollection{
			ClassID:        class.ID,
			ClassName:      class.Name,
			CollectionRate: summary.CollectionRate,
			OverdueFees:    summary.OverdueFees,
		})
		// CollectionRate is a fraction in [0,1]; the alert threshold is a percent.
		if summary.TotalFees > 0 && summary.CollectionRate*100 < s.cfg.LowCollectionAlertPct {
			alerts.LowCollectionClasses = append(alerts.LowCollectionClasses, class.ID)
		}
	}
	if overall.TotalFees > 0 {
		overall.CollectionRate = overall.PaidFees / overall.TotalFees
	}

	payroll, err := s.payroll.Summary(ctx)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.FinanceDashboardResponse{
		AcademicYear: academicYear,
		Fees:         overall,
		ByClass:      byClass,
		Payroll:      payroll,
		Alerts:       alerts,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}
