package receipts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/gcsuploader"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/dvloznov/budgetiq/internal/ocr"
	"github.com/dvloznov/budgetiq/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockExtractor is a mock implementation of ocr.Extractor for testing.
type mockExtractor struct {
	ExtractFunc func(ctx context.Context, data []byte, contentType string) (*domain.ExtractedReceipt, error)
}

func (m *mockExtractor) Extract(ctx context.Context, data []byte, contentType string) (*domain.ExtractedReceipt, error) {
	return m.ExtractFunc(ctx, data, contentType)
}

// mockPublisher records published jobs.
type mockPublisher struct {
	published []*jobs.Job
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, job *jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func newTestService(ex ocr.Extractor, pub jobs.Publisher) (*Service, *gcsuploader.MemoryStore) {
	files := gcsuploader.NewMemoryStore()
	if ex == nil {
		ex = ocr.NewStubExtractor()
	}
	return NewService(memory.New(), files, ex, pub, zerolog.Nop()), files
}

func upload(t *testing.T, s *Service, userID, name, body string) *domain.Receipt {
	t.Helper()
	rc, err := s.Upload(context.Background(), userID, UploadRequest{
		FileName:    name,
		ContentType: "image/jpeg",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	return rc
}

func TestUpload(t *testing.T) {
	s, files := newTestService(nil, nil)

	rc := upload(t, s, "user_a", "C:\\scans\\lunch.jpg", "jpeg bytes")
	require.NotEmpty(t, rc.ID)
	require.Equal(t, "lunch.jpg", rc.FileName)
	require.Equal(t, gcsuploader.MockBaseURL+ObjectName("user_a", rc.ID, "lunch.jpg"), rc.FileURL)
	require.Nil(t, rc.Extracted)

	data, err := files.Get(context.Background(), rc.FileURL)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))
}

func TestUploadRejectsMissingFile(t *testing.T) {
	s, _ := newTestService(nil, nil)

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{name: "no body", req: UploadRequest{FileName: "a.jpg"}},
		{name: "no name", req: UploadRequest{Body: strings.NewReader("x")}},
		{name: "directory only", req: UploadRequest{FileName: "/", Body: strings.NewReader("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(context.Background(), "user_a", tt.req)
			require.ErrorIs(t, err, domain.ErrValidation)
			de, _ := domain.AsError(err)
			require.Equal(t, "No file provided", de.Message)
		})
	}
}

func TestExtract(t *testing.T) {
	ex := &mockExtractor{
		ExtractFunc: func(ctx context.Context, data []byte, contentType string) (*domain.ExtractedReceipt, error) {
			require.Equal(t, "image/jpeg", contentType)
			require.Equal(t, "receipt", string(data))
			return &domain.ExtractedReceipt{Total: decimal.RequireFromString("42.50"), Date: "2026-10-01", Vendor: " Cafe Blue "}, nil
		},
	}
	s, _ := newTestService(ex, nil)
	rc := upload(t, s, "user_a", "r.jpg", "receipt")

	got, err := s.Extract(context.Background(), "user_a", rc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Extracted)
	require.Equal(t, "42.5", got.Extracted.Total.String())
	require.Equal(t, "Cafe Blue", got.Extracted.Vendor)
}

func TestExtractErrors(t *testing.T) {
	s, _ := newTestService(nil, nil)
	rc := upload(t, s, "user_a", "r.jpg", "receipt")

	_, err := s.Extract(context.Background(), "user_a", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Extract(context.Background(), "user_b", rc.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Extract(context.Background(), "user_a", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	bad := &mockExtractor{
		ExtractFunc: func(context.Context, []byte, string) (*domain.ExtractedReceipt, error) {
			return &domain.ExtractedReceipt{Total: decimal.NewFromInt(1), Date: "01/10/2026"}, nil
		},
	}
	s.extractor = bad
	_, err = s.Extract(context.Background(), "user_a", rc.ID)
	require.Error(t, err)
	_, isDomain := domain.AsError(err)
	require.False(t, isDomain)
}

func TestExtractAsyncAndHandleJob(t *testing.T) {
	pub := &mockPublisher{}
	s, _ := newTestService(nil, pub)
	rc := upload(t, s, "user_a", "r.jpg", "receipt")

	job, err := s.ExtractAsync(context.Background(), "user_a", rc.ID)
	require.NoError(t, err)
	require.Equal(t, "job-1", job.JobID)
	require.Len(t, pub.published, 1)
	require.Equal(t, rc.ID, job.Params[jobs.ParamReceiptID])

	_, err = s.ExtractAsync(context.Background(), "user_b", rc.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, pub.published, 1)

	require.NoError(t, s.HandleJob(context.Background(), job))
	require.Equal(t, ocr.MockVendor, job.Result["vendor"])
	require.Equal(t, rc.ID, job.Result["receiptId"])
}

func TestExtractAsyncPublishFailure(t *testing.T) {
	s, _ := newTestService(nil, &mockPublisher{err: errors.New("queue is closed")})
	rc := upload(t, s, "user_a", "r.jpg", "receipt")

	_, err := s.ExtractAsync(context.Background(), "user_a", rc.ID)
	require.ErrorContains(t, err, "queue is closed")

	s.publisher = nil
	_, err = s.ExtractAsync(context.Background(), "user_a", rc.ID)
	require.Error(t, err)
}
