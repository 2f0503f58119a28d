package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/export"
)

type exportStudentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type exportClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ExportFormat selects the rendering for a roster export.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult bundles rendered bytes with response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders class rosters as downloadable documents.
type ExportService struct {
	students exportStudentRepository
	classes  exportClassRepository
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	title    string
	maxRows  int
	logger   *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(students exportStudentRepository, classes exportClassRepository, title string, maxRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 2000
	}
	return &ExportService{
		students: students,
		classes:  classes,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		title:    title,
		maxRows:  maxRows,
		logger:   logger,
	}
}

// Roster renders the student roster of a class the caller can reach.
func (s *ExportService) Roster(ctx context.Context, actor authz.Principal, assignedClassID *string, classID string, format ExportFormat) (*ExportResult, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if !authz.CanAccessClass(actor, class.Section, class.ID, assignedClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(students) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("roster exceeds the export limit of %d rows", s.maxRows))
	}

	dataset := rosterDataset(students)
	fileBase := fmt.Sprintf("roster-%s-%s", slugify(class.Name), time.Now().UTC().Format("20060102"))

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{FileName: fileBase + ".csv", ContentType: "text/csv", Data: data}, nil
	case FormatPDF:
		title := s.title
		if title == "" {
			title = "Class Roster"
		}
		data, err := s.pdf.Render(dataset, fmt.Sprintf("%s - %s", title, class.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{FileName: fileBase + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func rosterDataset(students []models.Student) export.Dataset {
	headers := []string{"Reg No", "Last Name", "First Name", "Other Names", "Gender", "Date of Birth", "Guardian", "Guardian Phone"}
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		row := map[string]string{
			"Reg No":        st.RegistrationNo,
			"Last Name":     st.LastName,
			"First Name":    st.FirstName,
			"Gender":        string(st.Gender),
			"Date of Birth": st.DateOfBirth.Format("2006-01-02"),
		}
		if st.OtherNames != nil {
			row["Other Names"] = *st.OtherNames
		}
		if st.GuardianName != nil {
			row["Guardian"] = *st.GuardianName
		}
		if st.GuardianPhone != nil {
			row["Guardian Phone"] = *st.GuardianPhone
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
