package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// exportColumns is the fixed CSV header. Rows follow the queue's current
// filter and sort order, not the page slice.
var exportColumns = []string{
	"Student Name",
	"Student Code",
	"Score",
	"Status",
	"Submitted At",
	"Completed At",
	"Time Spent",
}

// FileUploader stores a generated artifact and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ExportService renders the filtered grading queue as a CSV document.
type ExportService interface {
	// ExportCSV returns the document bytes together with its metadata. When an
	// uploader is configured the artifact is also stored remotely and the
	// response carries its URL.
	ExportCSV(ctx context.Context, request dto.QueueListRequest) ([]byte, dto.ExportResponse, error)
}

type exportService struct {
	gateway  grading.Gateway
	uploader FileUploader
	logger   zerolog.Logger
	now      func() time.Time
}

// NewExportService constructs the export service. The uploader is optional.
func NewExportService(gateway grading.Gateway, uploader FileUploader, logger zerolog.Logger) ExportService {
	return &exportService{
		gateway:  gateway,
		uploader: uploader,
		logger:   logger.With().Str("component", "export_service").Logger(),
		now:      time.Now,
	}
}

func (s *exportService) ExportCSV(ctx context.Context, request dto.QueueListRequest) ([]byte, dto.ExportResponse, error) {
	tracer := otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/export")
	ctx, span := tracer.Start(ctx, "grading.queue.export")
	defer span.End()

	queue := grading.NewQueue(s.gateway, s.logger)
	if err := queue.Load(ctx); err != nil {
		span.RecordError(err)
		return nil, dto.ExportResponse{}, err
	}

	dates := grading.DateRange{Start: request.DateStart, End: request.DateEnd}
	queue.ApplyFilters(request.Search, request.Type, request.Status, dates)
	if request.SortField != "" {
		queue.SortBy(request.SortField, grading.SortDirection(request.SortDir))
	}

	rows := queue.Visible()
	payload, err := renderCSV(rows)
	if err != nil {
		span.RecordError(err)
		return nil, dto.ExportResponse{}, err
	}

	generatedAt := s.now()
	response := dto.ExportResponse{
		FileName:    fmt.Sprintf("grading-queue-%s.csv", generatedAt.Format("20060102-150405")),
		ContentType: "text/csv",
		Rows:        len(rows),
		GeneratedAt: generatedAt,
	}

	if detected := mimetype.Detect(payload); !detected.Is("text/csv") && !detected.Is("text/plain") {
		s.logger.Warn().Str("detected", detected.String()).Msg("unexpected export content type")
	}

	if s.uploader != nil {
		url, err := s.uploader.Upload(ctx, response.FileName, bytes.NewReader(payload))
		if err != nil {
			// The download still works; only the stored copy is lost.
			s.logger.Warn().Err(err).Msg("failed to store export artifact")
			span.RecordError(err)
		} else {
			response.URL = url
		}
	}

	span.SetAttributes(attribute.Int("grading.export.rows", len(rows)))
	return payload, response, nil
}

func renderCSV(rows []models.Submission) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, submission := range rows {
		record := []string{
			submission.Student.Name,
			submission.Student.Code,
			formatResult(submission),
			string(submission.Status),
			submission.SubmittedAt.Format(time.RFC3339),
			formatOptionalTime(submission.CompletedAt),
			formatTimeSpent(submission.TimeSpentSeconds),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.Bytes(), nil
}

// formatResult prefers the recorded grade over the external suggestion: a
// graded submission exports its latest grading pass as "total/max", anything
// still pending falls back to the suggested score.
func formatResult(submission models.Submission) string {
	if submission.IsGraded() && len(submission.History) > 0 {
		latest := submission.History[0]
		return fmt.Sprintf("%d/%d", latest.TotalScore, latest.MaxScore)
	}
	return formatScore(submission.SuggestedScore)
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimeSpent(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return (time.Duration(seconds) * time.Second).String()
}
