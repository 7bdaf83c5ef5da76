package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

type stubQueueService struct {
	response dto.QueueListResponse
}

func (s stubQueueService) List(context.Context, dto.QueueListRequest) (dto.QueueListResponse, error) {
	return s.response, nil
}

func (s stubQueueService) Stats(context.Context) (dto.QueueStatsResponse, error) {
	return s.response.Stats, nil
}

func (s stubQueueService) ListRubric(context.Context, models.QuestionType) ([]models.RubricCriterion, error) {
	return nil, nil
}

type stubExportService struct{}

func (stubExportService) ExportCSV(context.Context, dto.QueueListRequest) ([]byte, dto.ExportResponse, error) {
	return nil, dto.ExportResponse{}, nil
}

func TestGradingQueueContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "grading_queue.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	submittedAt := time.Now().UTC().Add(-2 * time.Hour)
	completedAt := submittedAt.Add(40 * time.Minute)
	suggested := 78.5

	list := dto.QueueListResponse{
		Items: []dto.QueueItemResponse{
			{
				ID:               41,
				StudentID:        7,
				StudentName:      "Siti Rahma",
				StudentCode:      "STU-001",
				ExamID:           3,
				ExamTitle:        "Essay Midterm",
				Type:             string(models.QuestionTypeWriting),
				ClassName:        "XI-A",
				Status:           string(models.SubmissionStatusPending),
				SubmittedAt:      submittedAt,
				CompletedAt:      &completedAt,
				TimeSpentSeconds: 2400,
				SuggestedScore:   &suggested,
			},
		},
		Pagination: dto.PaginationMeta{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
		Stats: dto.QueueStatsResponse{
			Total:            1,
			ByStatus:         map[string]int{"pending": 1},
			ByType:           map[string]int{"writing": 1},
			AverageSuggested: suggested,
			GeneratedAt:      time.Now().UTC(),
		},
	}

	queueHandler := handler.NewGradingQueueHandler(stubQueueService{response: list}, stubExportService{}, zerolog.Nop())

	app := fiber.New()
	queueHandler.Register(app.Group("/api/admin/grading"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/grading/queue", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
