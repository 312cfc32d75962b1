package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// maxWebhookBody caps the webhook payload size.
const maxWebhookBody = 1 << 20

type EventHandler interface {
	IngestWebhook(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListQuarantined(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
}

type eventHandlerImpl struct {
	ingestionService event.IngestionService
}

func NewEventHandler(ingestionService event.IngestionService) EventHandler {
	return &eventHandlerImpl{
		ingestionService: ingestionService,
	}
}

// IngestWebhook implements EventHandler. The raw body is kept aside
// because the signature covers the exact bytes on the wire.
func (h *eventHandlerImpl) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("Failed to read webhook body", "error", err)
		response.BadRequest(w, "Failed to read request body", nil)
		return
	}

	var req event.IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Error("Failed to unmarshal webhook payload", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	req.APIKey = r.Header.Get("X-Api-Key")
	req.RawPayload = body
	if sig := r.Header.Get("X-Signature"); sig != "" {
		req.Signature = &sig
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, created, err := h.ingestionService.Ingest(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if created {
		response.Created(w, "Event accepted", result)
		return
	}
	response.SuccessWithMessage(w, "Event already received", result)
}

// List implements EventHandler.
func (h *eventHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := event.EventFilter{
		Page:  parseIntQuery(r, "page", 1),
		Limit: parseIntQuery(r, "limit", 20),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("device_id"); v != "" {
		filter.DeviceID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if t, ok := parseDateQuery(r, "start_date"); ok {
		filter.StartDate = &t
	}
	if t, ok := parseDateQuery(r, "end_date"); ok {
		filter.EndDate = &t
	}

	result, err := h.ingestionService.ListEvents(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Events, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Get implements EventHandler.
func (h *eventHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.ingestionService.GetEvent(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListQuarantined implements EventHandler.
func (h *eventHandlerImpl) ListQuarantined(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingestionService.ListQuarantined(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Resolve implements EventHandler.
func (h *eventHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	var req event.ResolveQuarantineRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EventID = chi.URLParam(r, "id")
	req.ActorID = middleware.ActorID(r)

	result, err := h.ingestionService.ResolveQuarantine(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Event resolved", result)
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseDateQuery(r *http.Request, key string) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
