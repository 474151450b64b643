package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/rs/zerolog"
)

// ExportsHandler enqueues analytics exports.
type ExportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportsHandler creates an exports handler. A nil publisher means exports
// are not configured and requests get 503.
func NewExportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{publisher: publisher, log: log}
}

// ExportBigQuery handles POST /api/v1/exports/bigquery {from, to}
func (h *ExportsHandler) ExportBigQuery(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "unavailable", "BigQuery export is not configured")
		return
	}

	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := middleware.DecodeJSON(r, &req); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	from, err := civil.ParseDate(req.From)
	if err != nil {
		middleware.WriteErr(w, r, domain.Validation("Invalid from date"))
		return
	}
	to, err := civil.ParseDate(req.To)
	if err != nil {
		middleware.WriteErr(w, r, domain.Validation("Invalid to date"))
		return
	}
	if to.Before(from) {
		middleware.WriteErr(w, r, domain.Validation("from must not be after to"))
		return
	}

	job := &jobs.Job{
		Type:   jobs.JobTypeExportBigQuery,
		UserID: middleware.UserID(r.Context()),
		Params: map[string]string{
			jobs.ParamFrom: from.String(),
			jobs.ParamTo:   to.String(),
		},
	}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		middleware.WriteErr(w, r, err)
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("from", req.From).Str("to", req.To).Msg("BigQuery export enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  job.JobID,
		"status": job.Status,
	})
}
