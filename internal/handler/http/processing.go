package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/record"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
)

type ProcessingHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
	Reprocess(w http.ResponseWriter, r *http.Request)
}

type processingHandlerImpl struct {
	batchService record.BatchService
}

func NewProcessingHandler(batchService record.BatchService) ProcessingHandler {
	return &processingHandlerImpl{
		batchService: batchService,
	}
}

type runRequest struct {
	Date    string   `json:"date"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// Run implements ProcessingHandler. It processes one calendar day for
// the given users, or every user with activity on that day.
func (h *processingHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.BadRequest(w, "date must be formatted as YYYY-MM-DD", nil)
		return
	}

	result, err := h.batchService.ProcessDay(r.Context(), date, req.UserIDs)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Batch run completed", result)
}

type reprocessRequest struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Reprocess implements ProcessingHandler.
func (h *processingHandlerImpl) Reprocess(w http.ResponseWriter, r *http.Request) {
	var req reprocessRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if req.UserID == "" {
		response.BadRequest(w, "user_id is required", nil)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		response.BadRequest(w, "start_date must be formatted as YYYY-MM-DD", nil)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		response.BadRequest(w, "end_date must be formatted as YYYY-MM-DD", nil)
		return
	}

	records, err := h.batchService.ReprocessRange(r.Context(), req.UserID, start, end)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Range reprocessed", records)
}
