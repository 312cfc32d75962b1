package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type RecordHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Unlock(w http.ResponseWriter, r *http.Request)
	Adjust(w http.ResponseWriter, r *http.Request)
}

type recordHandlerImpl struct {
	processingService record.ProcessingService
}

func NewRecordHandler(processingService record.ProcessingService) RecordHandler {
	return &recordHandlerImpl{
		processingService: processingService,
	}
}

// List implements RecordHandler.
func (h *recordHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := record.RecordFilter{
		Page:  parseIntQuery(r, "page", 1),
		Limit: parseIntQuery(r, "limit", 20),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
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

	result, err := h.processingService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Get implements RecordHandler.
func (h *recordHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.processingService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Approve implements RecordHandler.
func (h *recordHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	var req record.ApproveRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.RecordID = chi.URLParam(r, "id")
	req.ActorID = middleware.ActorID(r)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.processingService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record approved and locked", result)
}

// Unlock implements RecordHandler.
func (h *recordHandlerImpl) Unlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.processingService.Unlock(r.Context(), id, middleware.ActorID(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record unlocked", result)
}

// Adjust implements RecordHandler.
func (h *recordHandlerImpl) Adjust(w http.ResponseWriter, r *http.Request) {
	var req record.AdjustRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.RecordID = chi.URLParam(r, "id")
	req.ActorID = middleware.ActorID(r)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.processingService.Adjust(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record adjusted", result)
}
