package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/bulk"
	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type studentActivationStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	IDsByActive(ctx context.Context, active bool) ([]string, error)
	ActiveIDsByClass(ctx context.Context, classID string) ([]string, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

type userActivationStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

type classYearLister interface {
	ListByYear(ctx context.Context, academicYear string) ([]models.Class, error)
}

// BulkOpsService fans bulk administrative operations out over the shared
// runner. Partial failure is the normal case: the outcome carries per-item
// failures and the succeeded items stay applied.
type BulkOpsService struct {
	runner     *bulk.Runner
	students   studentActivationStore
	users      userActivationStore
	classes    classYearLister
	structures feeStructureStore
	records    feeRecordStore
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
}

// BulkOpsServiceParams groups constructor dependencies.
type BulkOpsServiceParams struct {
	Runner     *bulk.Runner
	Students   studentActivationStore
	Users      userActivationStore
	Classes    classYearLister
	Structures feeStructureStore
	Records    feeRecordStore
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// NewBulkOpsService constructs a BulkOpsService.
func NewBulkOpsService(params BulkOpsServiceParams) *BulkOpsService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := params.Runner
	if runner == nil {
		runner = bulk.NewRunner(0, logger)
	}
	return &BulkOpsService{
		runner:     runner,
		students:   params.Students,
		users:      params.Users,
		classes:    params.Classes,
		structures: params.Structures,
		records:    params.Records,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
	}
}

// ActivateStudents activates the listed students. An empty list targets all
// currently inactive students; already-active students are skipped, and a
// wholly-active roster is a no-op rather than an error.
func (s *BulkOpsService) ActivateStudents(ctx context.Context, req dto.BulkActivateStudentsRequest) (*dto.BulkOutcomeResponse, error) {
	ids := req.StudentIDs
	if len(ids) == 0 {
		var err error
		ids, err = s.students.IDsByActive(ctx, false)
		if err != nil {
			return nil, err
		}
	}

	outcome := s.runner.Run(ctx, ids, func(ctx context.Context, studentID string) error {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return err
		}
		if student.Active {
			return bulk.Skip("already active")
		}
		if _, err := s.students.SetActive(ctx, studentID, true); err != nil {
			return err
		}
		return nil
	})

	s.finish("activate_students", outcome)
	return &dto.BulkOutcomeResponse{Outcome: outcome}, nil
}

// GenerateClassFees creates a fee record for every active student of every
// class in the year, from each class's active fee structure. Classes without
// a structure are skipped; students who already carry a record of the same
// fee type for the year are not billed twice.
func (s *BulkOpsService) GenerateClassFees(ctx context.Context, req dto.BulkGenerateFeesRequest) (*dto.BulkOutcomeResponse, error) {
	if req.AcademicYear == "" || req.FeeType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic_year and fee_type are required")
	}
	classes, err := s.classes.ListByYear(ctx, req.AcademicYear)
	if err != nil {
		return nil, err
	}
	classIDs := make([]string, 0, len(classes))
	for _, class := range classes {
		classIDs = append(classIDs, class.ID)
	}

	outcome := s.runner.Run(ctx, classIDs, func(ctx context.Context, classID string) error {
		return s.generateForClass(ctx, classID, req.AcademicYear, req.FeeType)
	})

	s.finish("generate_class_fees", outcome)
	return &dto.BulkOutcomeResponse{Outcome: outcome}, nil
}

func (s *BulkOpsService) generateForClass(ctx context.Context, classID, academicYear, feeType string) error {
	structure, err := s.structures.ActiveStructure(ctx, classID, academicYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bulk.Skip("no active fee structure")
		}
		return err
	}

	studentIDs, err := s.students.ActiveIDsByClass(ctx, classID)
	if err != nil {
		return err
	}
	if len(studentIDs) == 0 {
		return bulk.Skip("no active students")
	}

	existing, err := s.records.AllRecords(ctx, models.FeeRecordFilter{
		ClassID:      classID,
		AcademicYear: academicYear,
	})
	if err != nil {
		return err
	}
	billed := make(map[string]struct{}, len(existing))
	for _, record := range existing {
		if record.FeeType == feeType {
			billed[record.StudentID] = struct{}{}
		}
	}

	created := 0
	for _, studentID := range studentIDs {
		if _, ok := billed[studentID]; ok {
			continue
		}
		record := &models.FeeRecord{
			StudentID:    studentID,
			ClassID:      classID,
			FeeType:      feeType,
			AcademicYear: academicYear,
			Amount:       structure.TotalFee,
			DueDate:      structure.DueDate,
		}
		if err := s.records.CreateRecord(ctx, record); err != nil {
			return fmt.Errorf("create fee record for student %s: %w", studentID, err)
		}
		created++
	}
	if created == 0 {
		return bulk.Skip("all students already billed")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ClassSummaryKey(classID, academicYear)); err != nil {
			s.logger.Warn("class summary cache invalidation failed",
				zap.String("class_id", classID), zap.Error(err))
		}
	}
	return nil
}

// SetUsersActive flips the active flag on the listed user accounts. Accounts
// already in the requested state are skipped.
func (s *BulkOpsService) SetUsersActive(ctx context.Context, req dto.BulkSetUserActiveRequest) (*dto.BulkOutcomeResponse, error) {
	if len(req.UserIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user_ids must not be empty")
	}

	outcome := s.runner.Run(ctx, req.UserIDs, func(ctx context.Context, userID string) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "user not found")
			}
			return err
		}
		if user.Active == req.Active {
			return bulk.Skip("already in requested state")
		}
		if _, err := s.users.SetActive(ctx, userID, req.Active); err != nil {
			return err
		}
		return nil
	})

	s.finish("set_users_active", outcome)
	return &dto.BulkOutcomeResponse{Outcome: outcome}, nil
}

func (s *BulkOpsService) finish(operation string, outcome bulk.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordBulkItems(operation, outcome.SuccessCount, outcome.SkippedCount, outcome.FailureCount)
	}
	s.logger.Info("bulk operation finished",
		zap.String("operation", operation),
		zap.Int("succeeded", outcome.SuccessCount),
		zap.Int("skipped", outcome.SkippedCount),
		zap.Int("failed", outcome.FailureCount))
}
