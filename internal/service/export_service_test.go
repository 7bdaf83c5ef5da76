package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

type stubUploader struct {
	name string
	url  string
	err  error
}

func (s *stubUploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	s.name = name
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestExportServiceCSVColumns(t *testing.T) {
	submissions := queueFixture()
	submissions[0].SuggestedScore = floatPtr(64)
	submissions[1].SuggestedScore = floatPtr(87.5)
	submissions[1].History = []models.SubmissionGradeHistory{
		{SubmissionID: 2, TotalScore: 13, MaxScore: 15, GradedBy: 7, GradedAt: submissions[1].SubmittedAt.Add(time.Hour)},
	}
	completed := submissions[1].SubmittedAt.Add(40 * time.Minute)
	submissions[1].CompletedAt = &completed
	submissions[1].TimeSpentSeconds = 2400
	gateway := &stubGateway{submissions: submissions}

	svc := NewExportService(gateway, nil, testLogger())
	payload, response, err := svc.ExportCSV(context.Background(), dto.QueueListRequest{})
	require.NoError(t, err)
	require.Equal(t, 3, response.Rows)
	require.Equal(t, "text/csv", response.ContentType)
	require.Empty(t, response.URL)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, exportColumns, records[0])

	var graded, pending []string
	for _, record := range records[1:] {
		switch record[1] {
		case "STU-002":
			graded = record
		case "STU-001":
			pending = record
		}
	}
	require.NotNil(t, graded)
	require.Equal(t, "Budi Santoso", graded[0])
	require.Equal(t, "13/15", graded[2], "graded rows export the recorded grade, not the suggestion")
	require.Equal(t, "graded", graded[3])
	require.Equal(t, completed.Format(time.RFC3339), graded[5])
	require.Equal(t, "40m0s", graded[6])

	require.NotNil(t, pending)
	require.Equal(t, "64", pending[2], "ungraded rows fall back to the suggested score")
}

func TestExportServiceHonorsFilters(t *testing.T) {
	gateway := &stubGateway{submissions: queueFixture()}
	svc := NewExportService(gateway, nil, testLogger())

	payload, response, err := svc.ExportCSV(context.Background(), dto.QueueListRequest{
		Status: string(models.SubmissionStatusPending),
	})
	require.NoError(t, err)
	require.Equal(t, 2, response.Rows)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, record := range records[1:] {
		require.Equal(t, "pending", record[3])
	}
}

func TestExportServiceUploadsArtifact(t *testing.T) {
	gateway := &stubGateway{submissions: queueFixture()}
	uploader := &stubUploader{url: "https://cdn.example.com/grading-queue.csv"}
	svc := NewExportService(gateway, uploader, testLogger())

	_, response, err := svc.ExportCSV(context.Background(), dto.QueueListRequest{})
	require.NoError(t, err)
	require.Equal(t, uploader.url, response.URL)
	require.Equal(t, response.FileName, uploader.name)
}

func TestExportServiceUploadFailureKeepsDownload(t *testing.T) {
	gateway := &stubGateway{submissions: queueFixture()}
	uploader := &stubUploader{err: errors.New("quota exceeded")}
	svc := NewExportService(gateway, uploader, testLogger())

	payload, response, err := svc.ExportCSV(context.Background(), dto.QueueListRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	require.Empty(t, response.URL)
}

func TestExportServiceLoadFailure(t *testing.T) {
	gateway := &stubGateway{listErr: errors.New("timeout")}
	svc := NewExportService(gateway, nil, testLogger())

	_, _, err := svc.ExportCSV(context.Background(), dto.QueueListRequest{})
	var fetchErr *grading.FetchError
	require.ErrorAs(t, err, &fetchErr)
}
