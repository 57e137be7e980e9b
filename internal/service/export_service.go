package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/pkg/export"
	"github.com/noah-isme/academic-tracker-api/pkg/storage"
)

type reportAnalytics interface {
	Summary(ctx context.Context, userID string) (*analytics.Summary, bool, error)
	AttendanceTrend(ctx context.Context, userID string, filter TrendFilter) (*dto.TrendResponse, bool, error)
	MarksTrend(ctx context.Context, userID string, filter TrendFilter) (*dto.TrendResponse, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix   string
	ResultTTL   time.Duration
	Granularity analytics.Granularity
	Now         func() time.Time
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportSources groups the read models a report is assembled from.
type ExportSources struct {
	Attendance attendanceLister
	Marks      marksLister
	Analytics  reportAnalytics
	Goals      GoalSettingsProvider
}

// ExportService builds report sections and persists rendered files.
type ExportService struct {
	sources   ExportSources
	storage   fileStorage
	renderers map[models.ReportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. Renderers default to CSV, PDF and XLSX.
func NewExportService(sources ExportSources, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers map[models.ReportFormat]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Granularity == "" {
		cfg.Granularity = analytics.Weekly
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if renderers == nil {
		renderers = map[models.ReportFormat]export.Renderer{
			models.ReportFormatCSV:  export.NewCSVExporter(),
			models.ReportFormatPDF:  export.NewPDFExporter(),
			models.ReportFormatXLSX: export.NewXLSXExporter(),
		}
	}
	return &ExportService{
		sources:   sources,
		storage:   store,
		renderers: renderers,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the report for the job owner and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}

	report, err := s.BuildReport(ctx, job.CreatedBy, job.Type, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(report)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", job.Params.Format, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
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

	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// BuildReport assembles the sections for a report type.
func (s *ExportService) BuildReport(ctx context.Context, userID string, reportType models.ReportType, params models.ReportJobParams) (export.Report, error) {
	trend := TrendFilter{From: params.From, To: params.To, Granularity: s.cfg.Granularity}
	if g, ok := analytics.ParseGranularity(params.Granularity); ok {
		trend.Granularity = g
	}

	var builders []func(context.Context, string, TrendFilter) ([]export.Section, error)
	switch reportType {
	case models.ReportTypeAttendance:
		builders = append(builders, s.attendanceSections)
	case models.ReportTypeMarks:
		builders = append(builders, s.marksSections)
	case models.ReportTypeSummary:
		builders = append(builders, s.summarySections)
	case models.ReportTypeFull:
		builders = append(builders, s.summarySections, s.attendanceSections, s.marksSections)
	default:
		return export.Report{}, fmt.Errorf("unsupported report type %s", reportType)
	}

	report := export.Report{Title: reportTitle(reportType, s.cfg.Now())}
	for _, build := range builders {
		sections, err := build(ctx, userID, trend)
		if err != nil {
			return export.Report{}, err
		}
		report.Sections = append(report.Sections, sections...)
	}
	return report, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// ContentType reports the MIME type for a format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if r, ok := s.renderers[format]; ok {
		return r.ContentType()
	}
	return "application/octet-stream"
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) attendanceSections(ctx context.Context, userID string, trend TrendFilter) ([]export.Section, error) {
	subjects, err := s.sources.Attendance.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attendance subjects: %w", err)
	}
	settings, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Subject", "Attended", "Happened", "Attendance (%)", "Goal (%)", "Classes Needed", "Can Miss"}
	rows := make([]map[string]string, 0, len(subjects))
	for _, subject := range subjects {
		p := analytics.ProjectSubject(subject, settings.AttendanceGoalPercent)
		needed := strconv.Itoa(p.ClassesNeeded)
		if !p.Reachable {
			needed = "unreachable"
		}
		rows = append(rows, map[string]string{
			"Subject":        subject.Name,
			"Attended":       strconv.Itoa(subject.Attended),
			"Happened":       strconv.Itoa(subject.Happened),
			"Attendance (%)": formatFloat(p.DisplayPercentage),
			"Goal (%)":       formatFloat(p.Goal),
			"Classes Needed": needed,
			"Can Miss":       strconv.Itoa(p.ClassesCanMiss),
		})
	}

	sections := []export.Section{{Title: "Attendance", Data: export.Dataset{Headers: headers, Rows: rows}}}
	if s.sources.Analytics != nil {
		series, _, err := s.sources.Analytics.AttendanceTrend(ctx, userID, trend)
		if err != nil {
			return nil, err
		}
		sections = append(sections, trendSection("Attendance Trend", series))
	}
	return sections, nil
}

func (s *ExportService) marksSections(ctx context.Context, userID string, trend TrendFilter) ([]export.Section, error) {
	subjects, err := s.sources.Marks.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list marks subjects: %w", err)
	}
	settings, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Subject", "Credits", "Exams", "Scored", "Max", "Percentage", "Grade", "Grade Point", "GPA Goal Status"}
	rows := make([]map[string]string, 0, len(subjects))
	for _, subject := range subjects {
		goal := analytics.ProjectGPAGoal(analytics.GoalInputFromSubject(subject, settings.MarksPerCredit), settings.GPAGoal)
		rows = append(rows, map[string]string{
			"Subject":         subject.SubjectName,
			"Credits":         strconv.Itoa(subject.Credits),
			"Exams":           fmt.Sprintf("%d/%d", len(subject.Exams), subject.MaxExams),
			"Scored":          formatFloat(subject.TotalScoredMarks),
			"Max":             formatFloat(subject.TotalMaxMarks),
			"Percentage":      formatFloat(subject.Percentage),
			"Grade":           analytics.LetterGrade(subject.Percentage),
			"Grade Point":     formatFloat(subject.GradePoint),
			"GPA Goal Status": string(goal.Status),
		})
	}

	sections := []export.Section{{Title: "Marks", Data: export.Dataset{Headers: headers, Rows: rows}}}
	if s.sources.Analytics != nil {
		series, _, err := s.sources.Analytics.MarksTrend(ctx, userID, trend)
		if err != nil {
			return nil, err
		}
		sections = append(sections, trendSection("Marks Trend", series))
	}
	return sections, nil
}

func (s *ExportService) summarySections(ctx context.Context, userID string, _ TrendFilter) ([]export.Section, error) {
	if s.sources.Analytics == nil {
		return nil, fmt.Errorf("analytics source missing")
	}
	summary, _, err := s.sources.Analytics.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	metric := func(name, value string) map[string]string {
		return map[string]string{"Metric": name, "Value": value}
	}
	rows := []map[string]string{
		metric("Attendance Subjects", strconv.Itoa(summary.AttendanceSubjects)),
		metric("Classes Attended", fmt.Sprintf("%d/%d", summary.TotalAttended, summary.TotalHappened)),
		metric("Attendance (%)", formatFloat(summary.AttendancePercentage)),
		metric("Marks Subjects", strconv.Itoa(summary.MarksSubjects)),
		metric("Marks Scored", fmt.Sprintf("%s/%s", formatFloat(summary.TotalScored), formatFloat(summary.TotalMax))),
		metric("Marks (%)", formatFloat(summary.MarksPercentage)),
		metric("Total Credits", strconv.Itoa(summary.TotalCredits)),
		metric("Weighted GPA", formatFloat(summary.WeightedGPA)),
		metric("Progress (%)", formatFloat(summary.ProgressPercentage)),
	}
	return []export.Section{{Title: "Summary", Data: export.Dataset{Headers: []string{"Metric", "Value"}, Rows: rows}}}, nil
}

func (s *ExportService) settings(ctx context.Context, userID string) (models.GoalSettings, error) {
	if s.sources.Goals == nil {
		return models.DefaultGoalSettings(userID), nil
	}
	settings, err := s.sources.Goals.Get(ctx, userID)
	if err != nil {
		return models.GoalSettings{}, err
	}
	return *settings, nil
}

func trendSection(title string, series *dto.TrendResponse) export.Section {
	headers := []string{"Period", "Entries", "Positive", "Total", "Percentage"}
	rows := make([]map[string]string, 0)
	if series != nil {
		for _, period := range series.Periods {
			rows = append(rows, map[string]string{
				"Period":     period.Label,
				"Entries":    strconv.Itoa(period.Count),
				"Positive":   formatFloat(period.Positive),
				"Total":      formatFloat(period.Total),
				"Percentage": formatFloat(period.Percentage),
			})
		}
	}
	return export.Section{Title: title, Data: export.Dataset{Headers: headers, Rows: rows}}
}

func reportTitle(reportType models.ReportType, now time.Time) string {
	name := string(reportType)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s Report %s", name, now.Format("2006-01-02"))
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.cfg.Now().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s.%s", sanitizeFilename(job.CreatedBy), strings.ToLower(string(job.Type)), timestamp, sanitizeFilename(job.ID), ext)
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

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
