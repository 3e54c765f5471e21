package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/finance"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type feeStructureStore interface {
	UpsertStructure(ctx context.Context, structure *models.FeeStructure) error
	ActiveStructure(ctx context.Context, classID, academicYear string) (*models.FeeStructure, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// FeePlanServiceConfig bounds the amounts a structure may carry.
type FeePlanServiceConfig struct {
	MaxComponentAmount float64
	CategoryMaxima     map[string]float64
}

// FeePlanService validates and stores per-class fee structures.
type FeePlanService struct {
	structures feeStructureStore
	classes    classFinder
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        FeePlanServiceConfig
}

// FeePlanServiceParams groups constructor dependencies.
type FeePlanServiceParams struct {
	Structures feeStructureStore
	Classes    classFinder
	Cache      *CacheService
	Logger     *zap.Logger
	Config     FeePlanServiceConfig
}

// NewFeePlanService constructs a FeePlanService with sane defaults.
func NewFeePlanService(params FeePlanServiceParams) *FeePlanService {
	cfg := params.Config
	if cfg.MaxComponentAmount <= 0 {
		cfg.MaxComponentAmount = 50000
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeePlanService{
		structures: params.Structures,
		classes:    params.Classes,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Upsert validates and stores the fee structure for a class/year pair,
// superseding any previous structure. The request is rejected wholesale
// when any field fails validation.
func (s *FeePlanService) Upsert(ctx context.Context, req dto.UpsertFeeStructureRequest) (*dto.FeeStructureResponse, error) {
	fieldErrs := appErrors.FieldErrors{}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, err
	}

	extracurricular := s.validateComponents("extracurricular", req.Extracurricular, fieldErrs)
	miscellaneous := s.validateComponents("miscellaneous", req.Miscellaneous, fieldErrs)

	if req.TuitionFee < 0 {
		fieldErrs.Add("tuition_fee", "must not be negative")
	} else if req.TuitionFee > s.cfg.MaxComponentAmount {
		fieldErrs.Add("tuition_fee", fmt.Sprintf("must not exceed %.2f", s.cfg.MaxComponentAmount))
	}

	subtotal := finance.Subtotal(req.TuitionFee, extracurricular, miscellaneous)
	if req.Discount < 0 {
		fieldErrs.Add("discount", "must not be negative")
	} else if req.Discount > subtotal {
		fieldErrs.Add("discount", "must not exceed the fee subtotal")
	}

	if !req.DueDate.After(s.now()) {
		fieldErrs.Add("due_date", "must be in the future")
	}

	if err := fieldErrs.AsError(); err != nil {
		return nil, err
	}

	structure := &models.FeeStructure{
		ClassID:         req.ClassID,
		AcademicYear:    req.AcademicYear,
		TuitionFee:      req.TuitionFee,
		Extracurricular: extracurricular,
		Miscellaneous:   miscellaneous,
		Discount:        req.Discount,
		TotalFee:        finance.ComputeTotal(req.TuitionFee, extracurricular, miscellaneous, req.Discount),
		DueDate:         req.DueDate.UTC(),
	}
	if err := s.structures.UpsertStructure(ctx, structure); err != nil {
		return nil, fmt.Errorf("store fee structure: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ClassSummaryKey(req.ClassID, req.AcademicYear)); err != nil {
			s.logger.Warn("fee summary cache invalidation failed",
				zap.String("class_id", req.ClassID), zap.Error(err))
		}
	}

	s.logger.Info("fee structure stored",
		zap.String("class_id", structure.ClassID),
		zap.String("academic_year", structure.AcademicYear),
		zap.Float64("total_fee", structure.TotalFee))

	return structureResponse(structure), nil
}

// Active returns the current structure for a class/year pair.
func (s *FeePlanService) Active(ctx context.Context, classID, academicYear string) (*dto.FeeStructureResponse, error) {
	if classID == "" || academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id and academic_year are required")
	}
	structure, err := s.structures.ActiveStructure(ctx, classID, academicYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active fee structure for class")
		}
		return nil, err
	}
	return structureResponse(structure), nil
}

// validateComponents checks category keys against the closed set and amounts
// against the configured bounds, returning the parsed component map.
func (s *FeePlanService) validateComponents(group string, raw map[string]float64, fieldErrs appErrors.FieldErrors) map[models.FeeCategory]float64 {
	if len(raw) == 0 {
		return nil
	}
	components := make(map[models.FeeCategory]float64, len(raw))
	for key, amount := range raw {
		field := fmt.Sprintf("%s.%s", group, key)
		category, err := models.ParseFeeCategory(key)
		if err != nil {
			fieldErrs.Add(field, "unknown fee category")
			continue
		}
		if amount < 0 {
			fieldErrs.Add(field, "must not be negative")
			continue
		}
		limit := s.cfg.MaxComponentAmount
		if max, ok := s.cfg.CategoryMaxima[key]; ok && max > 0 {
			limit = max
		}
		if amount > limit {
			fieldErrs.Add(field, fmt.Sprintf("must not exceed %.2f", limit))
			continue
		}
		components[category] = amount
	}
	return components
}

func structureResponse(structure *models.FeeStructure) *dto.FeeStructureResponse {
	return &dto.FeeStructureResponse{
		ID:              structure.ID,
		ClassID:         structure.ClassID,
		AcademicYear:    structure.AcademicYear,
		TuitionFee:      structure.TuitionFee,
		Extracurricular: structure.Extracurricular,
		Miscellaneous:   structure.Miscellaneous,
		Discount:        structure.Discount,
		TotalFee:        structure.TotalFee,
		DueDate:         structure.DueDate,
		Superseded:      structure.Superseded,
	}
}
