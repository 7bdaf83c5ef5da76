package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/service"
)

type mockBatchService struct {
	confirmation grading.BatchConfirmation
	result       dto.BatchResultResponse
	lastPrepare  dto.BatchPrepareRequest
	lastExecute  dto.BatchExecuteRequest
	lastActor    service.ActivityActor
	prepareErr   error
	executeErr   error
}

func (m *mockBatchService) Prepare(_ context.Context, payload dto.BatchPrepareRequest) (grading.BatchConfirmation, error) {
	m.lastPrepare = payload
	if m.prepareErr != nil {
		return grading.BatchConfirmation{}, m.prepareErr
	}
	return m.confirmation, nil
}

func (m *mockBatchService) Execute(_ context.Context, payload dto.BatchExecuteRequest, actor service.ActivityActor) (dto.BatchResultResponse, error) {
	m.lastExecute = payload
	m.lastActor = actor
	if m.executeErr != nil {
		return dto.BatchResultResponse{}, m.executeErr
	}
	return m.result, nil
}

func newBatchApp(batches *mockBatchService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/admin/grading", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", "admin")
		return c.Next()
	})
	handler.NewBatchHandler(batches, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestBatchHandler_Prepare(t *testing.T) {
	batches := &mockBatchService{confirmation: grading.BatchConfirmation{
		Token:  "3f0c8adf-54f5-4f93-9404-52c9d06a47a1",
		Action: grading.BatchActionGrade,
		Count:  2,
	}}
	app := newBatchApp(batches)

	resp := postJSON(t, app, http.MethodPost, "/api/admin/grading/batch/prepare", dto.BatchPrepareRequest{
		IDs:    []uint{1, 2},
		Action: "grade",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []uint{1, 2}, batches.lastPrepare.IDs)

	var response struct {
		Data grading.BatchConfirmation `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 2, response.Data.Count)
	require.NotEmpty(t, response.Data.Token)
}

func TestBatchHandler_PrepareEmptySelection(t *testing.T) {
	batches := &mockBatchService{prepareErr: grading.ErrEmptySelection}
	app := newBatchApp(batches)

	resp := postJSON(t, app, http.MethodPost, "/api/admin/grading/batch/prepare", dto.BatchPrepareRequest{Action: "grade"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestBatchHandler_Execute(t *testing.T) {
	batches := &mockBatchService{result: dto.BatchResultResponse{
		Succeeded: []uint{1},
		Failed:    []uint{2},
		Refreshed: true,
	}}
	app := newBatchApp(batches)

	resp := postJSON(t, app, http.MethodPost, "/api/admin/grading/batch", dto.BatchExecuteRequest{
		Token: "3f0c8adf-54f5-4f93-9404-52c9d06a47a1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), batches.lastActor.ID)

	var response struct {
		Data dto.BatchResultResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, []uint{1}, response.Data.Succeeded)
	require.Equal(t, []uint{2}, response.Data.Failed)
}

func TestBatchHandler_ExecuteExpiredToken(t *testing.T) {
	batches := &mockBatchService{executeErr: grading.ErrConfirmationUnknown}
	app := newBatchApp(batches)

	resp := postJSON(t, app, http.MethodPost, "/api/admin/grading/batch", dto.BatchExecuteRequest{
		Token: "3f0c8adf-54f5-4f93-9404-52c9d06a47a1",
	})
	require.Equal(t, fiber.StatusGone, resp.StatusCode)
}

func TestBatchHandler_ExecuteGatewayFailure(t *testing.T) {
	batches := &mockBatchService{executeErr: &grading.SaveError{}}
	app := newBatchApp(batches)

	resp := postJSON(t, app, http.MethodPost, "/api/admin/grading/batch", dto.BatchExecuteRequest{
		Token: "3f0c8adf-54f5-4f93-9404-52c9d06a47a1",
	})
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
