package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/gcs"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/dvloznov/budgetiq/internal/ocr"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultContentType = "application/octet-stream"

var (
	errNoFile          = domain.Validation("No file provided")
	errReceiptRequired = domain.Validation("receiptId required")
	errReceiptNotFound = domain.NotFound("Receipt not found")
)

// UploadRequest carries one uploaded receipt file.
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service stores receipt files and runs OCR over them.
type Service struct {
	repo      store.ReceiptRepository
	files     gcs.FileStore
	extractor ocr.Extractor
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewService creates a receipt service. publisher may be nil, in which case
// ExtractAsync is unavailable.
func NewService(repo store.ReceiptRepository, files gcs.FileStore, extractor ocr.Extractor, publisher jobs.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		files:     files,
		extractor: extractor,
		publisher: publisher,
		log:       log,
	}
}

// ObjectName is where a receipt's file is stored.
func ObjectName(userID, receiptID, fileName string) string {
	return fmt.Sprintf("receipts/%s/%s/%s", userID, receiptID, fileName)
}

// Upload stores the file and records a receipt with nothing extracted yet.
func (s *Service) Upload(ctx context.Context, userID string, req UploadRequest) (*domain.Receipt, error) {
	name := cleanFileName(req.FileName)
	if req.Body == nil || name == "" {
		return nil, errNoFile
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	receiptID := uuid.New().String()
	url, err := s.files.Put(ctx, ObjectName(userID, receiptID, name), contentType, req.Body)
	if err != nil {
		return nil, fmt.Errorf("Upload: storing file: %w", err)
	}

	rc := &domain.Receipt{
		ID:          receiptID,
		UserID:      userID,
		FileURL:     url,
		FileName:    name,
		ContentType: contentType,
		Size:        req.Size,
	}
	if err := s.repo.CreateReceipt(ctx, rc); err != nil {
		return nil, fmt.Errorf("Upload: saving receipt: %w", err)
	}

	s.log.Info().
		Str("receipt_id", rc.ID).
		Str("file_url", url).
		Int64("bytes", req.Size).
		Msg("Receipt uploaded")
	return rc, nil
}

// Extract runs OCR on the user's receipt and stores the result.
func (s *Service) Extract(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	rc, err := s.get(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}

	data, err := s.files.Get(ctx, rc.FileURL)
	if err != nil {
		return nil, fmt.Errorf("Extract: downloading %s: %w", rc.FileURL, err)
	}

	extracted, err := s.extractor.Extract(ctx, data, rc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}
	if err := ocr.Validate(extracted); err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}

	updated, err := s.repo.SetExtracted(ctx, userID, rc.ID, extracted)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errReceiptNotFound
		}
		return nil, fmt.Errorf("Extract: saving result: %w", err)
	}
	return updated, nil
}

// ExtractAsync checks the receipt exists and enqueues an extraction job.
func (s *Service) ExtractAsync(ctx context.Context, userID, receiptID string) (*jobs.Job, error) {
	if s.publisher == nil {
		return nil, fmt.Errorf("ExtractAsync: no job publisher configured")
	}
	rc, err := s.get(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}

	job := &jobs.Job{
		Type:   jobs.JobTypeExtractReceipt,
		UserID: userID,
		Params: map[string]string{jobs.ParamReceiptID: rc.ID},
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("ExtractAsync: publishing job: %w", err)
	}

	s.log.Info().Str("job_id", job.JobID).Str("receipt_id", rc.ID).Msg("Extraction job enqueued")
	return job, nil
}

// HandleJob is the jobs.JobHandler for extract_receipt jobs.
func (s *Service) HandleJob(ctx context.Context, job *jobs.Job) error {
	receiptID := job.Params[jobs.ParamReceiptID]
	log := s.log.With().Str("job_id", job.JobID).Str("receipt_id", receiptID).Logger()

	rc, err := s.Extract(ctx, job.UserID, receiptID)
	if err != nil {
		return err
	}

	job.Result = map[string]any{
		"receiptId": rc.ID,
		"total":     rc.Extracted.Total.String(),
		"date":      rc.Extracted.Date,
		"vendor":    rc.Extracted.Vendor,
	}
	log.Info().Str("vendor", rc.Extracted.Vendor).Msg("Receipt extracted")
	return nil
}

func (s *Service) get(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, errReceiptRequired
	}
	rc, err := s.repo.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errReceiptNotFound
		}
		return nil, fmt.Errorf("get receipt %s: %w", receiptID, err)
	}
	return rc, nil
}

// cleanFileName drops any directory or query part of a client-supplied name.
func cleanFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, "?"); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
