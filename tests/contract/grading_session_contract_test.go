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
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/models"
	"github.com/kelasio/kelas-admin-api/internal/service"
)

type stubSessionService struct {
	response dto.SessionResponse
}

func (s stubSessionService) Open(context.Context, uint, service.ActivityActor) (dto.SessionResponse, error) {
	return s.response, nil
}

func (s stubSessionService) Get(string) (dto.SessionResponse, error) {
	return s.response, nil
}

func (s stubSessionService) UpdateAnswer(context.Context, string, uint, dto.UpdateAnswerRequest) (dto.SessionResponse, error) {
	return s.response, nil
}

func (s stubSessionService) ApplySuggested(context.Context, string, uint) (dto.SessionResponse, error) {
	return s.response, nil
}

func (s stubSessionService) EvaluateRubric(context.Context, string, uint, dto.RubricEvaluationRequest) (dto.RubricSummaryResponse, error) {
	return dto.RubricSummaryResponse{}, nil
}

func (s stubSessionService) Save(context.Context, string, service.ActivityActor) (dto.SessionResponse, error) {
	return s.response, nil
}

func (s stubSessionService) Close(string) error { return nil }

func (s stubSessionService) CloseAll() {}

func (s stubSessionService) Sweep(time.Duration) int { return 0 }

func TestGradingSessionContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "grading_session.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	score := 4
	savedAt := time.Now().UTC().Add(-time.Minute)

	session := dto.SessionResponse{
		SessionID:          "9c1f5f9a-2f98-4d7b-a1a6-6cf1f6f0a001",
		SubmissionID:       41,
		StudentName:        "Siti Rahma",
		ExamTitle:          "Essay Midterm",
		State:              string(grading.SessionEditing),
		Dirty:              true,
		FocusedAnswerIndex: 1,
		LastSavedAt:        &savedAt,
		Answers: []dto.AnswerResponse{
			{
				ID:           11,
				QuestionText: "Describe your favourite holiday.",
				QuestionType: string(models.QuestionTypeWriting),
				MaxPoints:    5,
				Content:      "Last year I went to Lombok...",
				Score:        &score,
				Feedback:     "Good structure.",
				AIAnalysis:   &models.AIAnalysis{Score: 82, Feedback: "Clear narrative."},
			},
			{
				ID:           12,
				QuestionText: "Summarise the article.",
				QuestionType: string(models.QuestionTypeWriting),
				MaxPoints:    10,
				Score:        nil,
			},
		},
		Totals: grading.Totals{TotalScore: 4, MaxScore: 15, Percentage: 26.67},
	}

	sessionHandler := handler.NewGradingSessionHandler(stubSessionService{response: session}, zerolog.Nop())

	app := fiber.New()
	sessionHandler.Register(app.Group("/api/admin/grading"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/grading/sessions/"+session.SessionID, nil)
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
