package handlers

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/receipts"
	"github.com/rs/zerolog"
)

// maxUploadBytes bounds receipt uploads.
const maxUploadBytes = 10 << 20

var errNoFile = domain.Validation("No file provided")

// ReceiptsHandler handles receipt uploads and OCR.
type ReceiptsHandler struct {
	svc *receipts.Service
	log zerolog.Logger
}

// NewReceiptsHandler creates a receipts handler.
func NewReceiptsHandler(svc *receipts.Service, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc, log: log}
}

// UploadReceipt handles POST /api/v1/receipts (multipart field "file").
func (h *ReceiptsHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteErr(w, r, errNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteErr(w, r, errNoFile)
		return
	}
	defer file.Close()

	rc, err := h.svc.Upload(r.Context(), middleware.UserID(r.Context()), receipts.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"receipt": rc})
}

// ExtractReceipt handles POST /api/v1/ocr. With async set the extraction runs
// as a background job and the job id is returned with 202.
func (h *ReceiptsHandler) ExtractReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiptID string `json:"receiptId"`
		Async     bool   `json:"async"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	userID := middleware.UserID(r.Context())

	if req.Async {
		job, err := h.svc.ExtractAsync(r.Context(), userID, req.ReceiptID)
		if err != nil {
			middleware.WriteErr(w, r, err)
			return
		}
		middleware.WriteJSON(w, http.StatusAccepted, map[string]any{
			"jobId":  job.JobID,
			"status": job.Status,
		})
		return
	}

	rc, err := h.svc.Extract(r.Context(), userID, req.ReceiptID)
	if err != nil {
		middleware.WriteErr(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"receipt": rc})
}
