package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kelasio/kelas-admin-api/internal/config"
	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/middleware"
	"github.com/kelasio/kelas-admin-api/internal/models"
	"github.com/kelasio/kelas-admin-api/internal/repository"
	"github.com/kelasio/kelas-admin-api/internal/router"
	"github.com/kelasio/kelas-admin-api/internal/service"
)

type integrationUploader struct{}

func (integrationUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func setupGradingApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	// A named in-memory database keeps each test's data isolated.
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Exam{},
		&models.Submission{},
		&models.SubmissionGradeHistory{},
		&models.Answer{},
		&models.RubricCriterion{},
		&models.ActivityLog{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	gradingRepo := repository.NewGradingRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	statsProvider := service.NewQueueStatsService(nil, 0, logger)
	queueService := service.NewGradingQueueService(gradingRepo, gradingRepo, statsProvider, logger)
	exportService := service.NewExportService(gradingRepo, integrationUploader{}, logger)
	suggestionService := service.NewSuggestionService(gradingRepo, logger)
	sessionService := service.NewGradingSessionService(gradingRepo, gradingRepo, validate, activityService, nil, time.Minute, 5*time.Second, logger)
	t.Cleanup(sessionService.CloseAll)

	coordinator := grading.NewBatchCoordinator(gradingRepo, logger)
	batchService := service.NewBatchService(coordinator, validate, statsProvider, activityService, nil, 5*time.Second, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		QueueHandler:      handler.NewGradingQueueHandler(queueService, exportService, logger),
		SessionHandler:    handler.NewGradingSessionHandler(sessionService, logger),
		BatchHandler:      handler.NewBatchHandler(batchService, logger),
		SuggestionHandler: handler.NewSuggestionHandler(suggestionService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(9001))
			c.Locals("user_role", "admin")
			return c.Next()
		},
	})

	return app, db
}

func seedSubmission(t *testing.T, db *gorm.DB) models.Submission {
	t.Helper()

	student := models.Student{Name: "Siti Rahma", Code: "STU-001", Email: "siti@example.com", ClassName: "XI-A"}
	require.NoError(t, db.Create(&student).Error)

	exam := models.Exam{Title: "Essay Midterm", Type: models.QuestionTypeWriting, TotalPoints: 15}
	require.NoError(t, db.Create(&exam).Error)

	submittedAt := time.Now().UTC().Add(-2 * time.Hour)
	completedAt := submittedAt.Add(40 * time.Minute)
	submission := models.Submission{
		StudentID:        student.ID,
		ExamID:           exam.ID,
		ClassName:        "XI-A",
		SubmittedAt:      submittedAt,
		CompletedAt:      &completedAt,
		TimeSpentSeconds: 2400,
		Status:           models.SubmissionStatusPending,
	}
	require.NoError(t, db.Create(&submission).Error)

	answers := []models.Answer{
		{
			SubmissionID: submission.ID,
			QuestionText: "Describe your favourite holiday.",
			QuestionType: models.QuestionTypeWriting,
			MaxPoints:    5,
			Content:      "Last year I went to Lombok...",
			AIAnalysis:   []byte(`{"score": 82, "feedback": "Clear narrative."}`),
		},
		{
			SubmissionID: submission.ID,
			QuestionText: "Summarise the article.",
			QuestionType: models.QuestionTypeWriting,
			MaxPoints:    10,
			Content:      "The article argues that...",
		},
	}
	for i := range answers {
		require.NoError(t, db.Create(&answers[i]).Error)
	}

	return submission
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var env envelope
	if len(raw) > 0 && resp.Header.Get("Content-Type") != "" && resp.Header.Get("Content-Disposition") == "" {
		require.NoError(t, json.Unmarshal(raw, &env))
	}

	return resp, env
}

func TestGradingEndToEndFlow(t *testing.T) {
	app, db := setupGradingApp(t)
	submission := seedSubmission(t, db)

	var answers []models.Answer
	require.NoError(t, db.Where("submission_id = ?", submission.ID).Order("id ASC").Find(&answers).Error)
	require.Len(t, answers, 2)

	// Step 1: the queue lists the pending submission.
	resp, env := doJSON(t, app, http.MethodGet, "/api/admin/grading/queue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var queue dto.QueueListResponse
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue.Items, 1)
	require.Equal(t, "Siti Rahma", queue.Items[0].StudentName)
	require.Equal(t, "pending", queue.Items[0].Status)
	require.Equal(t, 1, queue.Stats.Total)

	// Step 2: open a grading session for it.
	resp, env = doJSON(t, app, http.MethodPost, "/api/admin/grading/sessions", dto.OpenSessionRequest{SubmissionID: submission.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.SessionID)
	require.Equal(t, string(grading.SessionReady), session.State)
	require.Len(t, session.Answers, 2)

	base := "/api/admin/grading/sessions/" + session.SessionID

	// Step 3: copy the suggested score onto the first answer (82% of 5 -> 4).
	resp, env = doJSON(t, app, http.MethodPost, base+"/answers/"+itoa(answers[0].ID)+"/suggested", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotNil(t, session.Answers[0].Score)
	require.Equal(t, 4, *session.Answers[0].Score)
	require.True(t, session.Dirty)

	// Step 4: score the second answer by hand.
	score := 7
	feedback := "Covers the main argument but misses the counterpoint."
	resp, env = doJSON(t, app, http.MethodPatch, base+"/answers/"+itoa(answers[1].ID), dto.UpdateAnswerRequest{Score: &score, Feedback: &feedback})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.Equal(t, 11, session.Totals.TotalScore)
	require.Equal(t, 15, session.Totals.MaxScore)

	// Step 5: save, which persists scores and advances the submission.
	resp, env = doJSON(t, app, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.False(t, session.Dirty)
	require.NotNil(t, session.LastSavedAt)

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.NotNil(t, stored.GradedAt)

	var history []models.SubmissionGradeHistory
	require.NoError(t, db.Where("submission_id = ?", submission.ID).Find(&history).Error)
	require.Len(t, history, 1)
	require.Equal(t, 11, history[0].TotalScore)
	require.Equal(t, 15, history[0].MaxScore)

	// Step 6: batch-review the graded submission behind the confirmation gate.
	resp, env = doJSON(t, app, http.MethodPost, "/api/admin/grading/batch/prepare", dto.BatchPrepareRequest{IDs: []uint{submission.ID}, Action: "grade"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmation grading.BatchConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &confirmation))
	require.NotEmpty(t, confirmation.Token)
	require.Equal(t, 1, confirmation.Count)

	resp, env = doJSON(t, app, http.MethodPost, "/api/admin/grading/batch", dto.BatchExecuteRequest{Token: confirmation.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dto.BatchResultResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Equal(t, []uint{submission.ID}, result.Succeeded)
	require.Empty(t, result.Failed)

	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, models.SubmissionStatusReviewed, stored.Status)

	// Step 7: the audit trail recorded both actions.
	resp, env = doJSON(t, app, http.MethodGet, "/api/admin/grading/activity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activity dto.ActivityListResponse
	require.NoError(t, json.Unmarshal(env.Data, &activity))
	require.GreaterOrEqual(t, len(activity.Items), 2)

	actions := make(map[string]bool, len(activity.Items))
	for _, item := range activity.Items {
		actions[item.Action] = true
		require.Equal(t, uint(9001), item.ActorID)
	}
	require.True(t, actions["submission.graded"])
	require.True(t, actions["submission.batch"])

	// Step 8: the CSV export streams the reviewed row.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/grading/queue/export", nil)
	exportResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, exportResp.StatusCode)
	require.Contains(t, exportResp.Header.Get("Content-Disposition"), "attachment")
	require.NotEmpty(t, exportResp.Header.Get("X-Export-URL"))

	payload, err := io.ReadAll(exportResp.Body)
	require.NoError(t, err)
	exportResp.Body.Close()
	require.Contains(t, string(payload), "Student Name")
	require.Contains(t, string(payload), "Siti Rahma")
}

func TestSuggestionIngestUpdatesQueueSuggestion(t *testing.T) {
	app, db := setupGradingApp(t)
	submission := seedSubmission(t, db)

	var answers []models.Answer
	require.NoError(t, db.Where("submission_id = ?", submission.ID).Order("id ASC").Find(&answers).Error)

	body := map[string]interface{}{
		"score":       64.0,
		"feedback":    "Summary is too short.",
		"suggestions": []string{"Mention the counterpoint."},
	}
	resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/grading/submissions/"+itoa(submission.ID)+"/answers/"+itoa(answers[1].ID)+"/analysis", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.NotNil(t, stored.SuggestedScore)
	// (82 + 64) / 2 across the two analysed answers.
	require.InDelta(t, 73.0, *stored.SuggestedScore, 0.01)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
