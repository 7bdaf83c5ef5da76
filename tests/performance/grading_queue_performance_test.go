package performance_test

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/models"
	"github.com/kelasio/kelas-admin-api/internal/repository"
	"github.com/kelasio/kelas-admin-api/internal/service"
)

func setupQueuePerformanceApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Exam{}, &models.Submission{}, &models.Answer{}, &models.SubmissionGradeHistory{}))

	// Seed dataset
	now := time.Now().UTC()
	exams := []models.Exam{
		{Title: "Essay Midterm", Type: models.QuestionTypeWriting, TotalPoints: 100},
		{Title: "Listening Quiz", Type: models.QuestionTypeListening, TotalPoints: 50},
	}
	for i := range exams {
		require.NoError(t, db.Create(&exams[i]).Error)
	}

	students := make([]models.Student, 0, 50)
	for i := 0; i < 50; i++ {
		student := models.Student{
			Name:  fmt.Sprintf("Student %02d", i),
			Code:  fmt.Sprintf("STU-%03d", i),
			Email: fmt.Sprintf("student%02d@example.com", i),
		}
		require.NoError(t, db.Create(&student).Error)
		students = append(students, student)
	}

	suggested := 74.0
	for idx, exam := range exams {
		for _, student := range students {
			submission := models.Submission{
				StudentID:      student.ID,
				ExamID:         exam.ID,
				SubmittedAt:    now.Add(-time.Duration(idx+1) * time.Hour),
				Status:         models.SubmissionStatusPending,
				SuggestedScore: &suggested,
			}
			require.NoError(t, db.Create(&submission).Error)
		}
	}

	logger := zerolog.Nop()
	gradingRepo := repository.NewGradingRepository(db)
	statsProvider := service.NewQueueStatsService(nil, 0, logger)
	queueService := service.NewGradingQueueService(gradingRepo, gradingRepo, statsProvider, logger)
	exportService := service.NewExportService(gradingRepo, nil, logger)
	queueHandler := handler.NewGradingQueueHandler(queueService, exportService, logger)

	app := fiber.New()
	queueHandler.Register(app.Group("/api/admin/grading"))

	return app
}

func TestGradingQueueP95LatencyBelow250ms(t *testing.T) {
	app := setupQueuePerformanceApp(t)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/grading/queue?page=1&page_size=20", nil)
		start := time.Now()
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	p95 := durations[index]

	require.LessOrEqual(t, p95, 250*time.Millisecond)
}
