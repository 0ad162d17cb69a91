package handler

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/push-dispatch/internal/api/middleware"
	"github.com/notifyhub/push-dispatch/internal/domain"
	"github.com/notifyhub/push-dispatch/internal/service"
)

// DispatchHandler handles the notification dispatch endpoint.
type DispatchHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewDispatchHandler(svc *service.DispatchService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{svc: svc, logger: logger}
}

// Dispatch handles POST /api/v1/dispatch
//
// The body is one of three shapes — a queued-event record, a direct event
// invocation, or a raw manual message — classified up front and run through
// the pipeline. Responses:
//
//	200 {"success": true, "results": [...]}  delivery was attempted
//	200 {"message": "..."}                   no-op (no subscription / unknown event)
//	400 {"error": "..."}                     malformed request, nothing consumed
//	500 {"error": "..."}                     store or unexpected failure
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := domain.ParseDispatchRequest(body)
	if err != nil {
		mapError(w, err)
		return
	}

	res, err := h.svc.Dispatch(r.Context(), req)
	if err != nil {
		h.logger.Warn("dispatch failed",
			apimw.CorrelationField(r.Context()),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	if !res.Dispatched {
		respondJSON(w, http.StatusOK, map[string]string{"message": res.Message})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": res.Outcomes,
	})
}
