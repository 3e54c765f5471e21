package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/finance"
	"github.com/noah-isme/school-finance-api/internal/models"
	"github.com/noah-isme/school-finance-api/pkg/export"
	"github.com/noah-isme/school-finance-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type salaryLister interface {
	ListActive(ctx context.Context) ([]models.SalaryRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes statement rendering behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.StatementFormat
	ExpiresAt    time.Time
}

// ExportService builds statement datasets and persists rendered files.
type ExportService struct {
	records  feeRecordStore
	payments paymentStore
	salaries salaryLister
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	now      func() time.Time
	cfg      ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Records  feeRecordStore
	Payments paymentStore
	Salaries salaryLister
	Storage  fileStorage
	Signer   *storage.SignedURLSigner
	CSV      csvRenderer
	PDF      pdfRenderer
	Logger   *zap.Logger
	Config   ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		records:  params.Records,
		payments: params.Payments,
		salaries: params.Salaries,
		storage:  params.Storage,
		csv:      csv,
		pdf:      pdf,
		signer:   params.Signer,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Generate builds the dataset for a statement job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.StatementJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Format {
	case models.StatementFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.StatementFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/statements/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored statement file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.StatementJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if job.ClassID != nil && *job.ClassID != "" {
		scope = sanitizeFilename(*job.ClassID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.StatementJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.StatementClassFees:
		return s.buildClassFeesDataset(ctx, job)
	case models.StatementPayrollRegister:
		return s.buildPayrollDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported statement type %s", job.Type)
	}
}

func (s *ExportService) buildClassFeesDataset(ctx context.Context, job *models.StatementJob) (export.Dataset, string, error) {
	classID := deref(job.ClassID)
	academicYear := deref(job.AcademicYear)
	records, err := s.records.AllRecords(ctx, models.FeeRecordFilter{
		ClassID:      classID,
		AcademicYear: academicYear,
	})
	if err != nil {
		return export.Dataset{}, "", err
	}

	feeIDs := make([]string, 0, len(records))
	for _, record := range records {
		feeIDs = append(feeIDs, record.ID)
	}
	payments, err := s.payments.ListByFeeIDs(ctx, feeIDs)
	if err != nil {
		return export.Dataset{}, "", err
	}
	byFee := make(map[string][]models.Payment, len(records))
	for _, payment := range payments {
		byFee[payment.FeeID] = append(byFee[payment.FeeID], payment)
	}

	var totalAmount, totalOutstanding float64
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		outstanding := finance.Outstanding(record, byFee[record.ID])
		totalAmount += record.Amount
		totalOutstanding += outstanding
		rows = append(rows, map[string]string{
			"Student ID":  record.StudentID,
			"Fee Type":    record.FeeType,
			"Amount":      fmt.Sprintf("%.2f", record.Amount),
			"Outstanding": fmt.Sprintf("%.2f", outstanding),
			"Status":      string(record.Status),
			"Due Date":    record.DueDate.UTC().Format("2006-01-02"),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Student ID", "Fee Type", "Amount", "Outstanding", "Status", "Due Date"},
		Rows:    rows,
		Footer: map[string]string{
			"Student ID":  "Total",
			"Amount":      fmt.Sprintf("%.2f", totalAmount),
			"Outstanding": fmt.Sprintf("%.2f", totalOutstanding),
		},
	}
	title := fmt.Sprintf("Class Fee Statement %s %s", classID, academicYear)
	return dataset, title, nil
}

func (s *ExportService) buildPayrollDataset(ctx context.Context) (export.Dataset, string, error) {
	records, err := s.salaries.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	var total float64
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		total += record.MonthlySalary
		lastPaid := ""
		if record.LastPaymentDate != nil {
			lastPaid = record.LastPaymentDate.UTC().Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Staff Name":     record.StaffName,
			"Role":           record.StaffRole,
			"Monthly Salary": fmt.Sprintf("%.2f", record.MonthlySalary),
			"Status":         string(record.PaymentStatus),
			"Last Paid":      lastPaid,
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Staff Name", "Role", "Monthly Salary", "Status", "Last Paid"},
		Rows:    rows,
		Footer: map[string]string{
			"Staff Name":     "Total",
			"Monthly Salary": fmt.Sprintf("%.2f", total),
		},
	}
	return dataset, "Payroll Register", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
