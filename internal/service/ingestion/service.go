package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/device"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/signature"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Enqueuer defers reconciliation of a user-day to the worker pool so the
// webhook ack never waits on computation.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string, date time.Time) error
}

type IngestionServiceImpl struct {
	event.EventRepository
	device.DeviceRepository
	enqueuer Enqueuer
	rules    config.AttendanceRules
}

func NewIngestionService(
	eventRepo event.EventRepository,
	deviceRepo device.DeviceRepository,
	enqueuer Enqueuer,
	rules config.AttendanceRules,
) event.IngestionService {
	return &IngestionServiceImpl{
		EventRepository:  eventRepo,
		DeviceRepository: deviceRepo,
		enqueuer:         enqueuer,
		rules:            rules,
	}
}

// localWall converts a UTC instant to the engine timezone's wall clock,
// re-anchored in UTC. All local-day arithmetic uses this convention so
// stored zone-less timestamps compare correctly.
func localWall(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC)
}

// Ingest implements event.IngestionService.
func (s *IngestionServiceImpl) Ingest(ctx context.Context, req event.IngestRequest) (event.EventResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return event.EventResponse{}, false, err
	}

	// Fast path for replays: the key is unique, so a hit is always the
	// original event.
	if existing, err := s.EventRepository.GetByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
		return mapEventToResponse(existing), false, nil
	} else if !errors.Is(err, event.ErrEventNotFound) {
		return event.EventResponse{}, false, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	dev, err := s.DeviceRepository.GetByID(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return event.EventResponse{}, false, event.ErrUnknownDevice
		}
		return event.EventResponse{}, false, fmt.Errorf("failed to get device: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(dev.APIKeyHash), []byte(req.APIKey)); err != nil {
		return event.EventResponse{}, false, event.ErrInvalidDeviceKey
	}

	// A bad signature never rejects the event; it is stored flagged for
	// review.
	var sigValid *bool
	if req.Signature != nil {
		valid := signature.Verify(dev.SigningSecret, req.RawPayload, *req.Signature)
		sigValid = &valid
		if !valid {
			slog.Warn("Webhook signature mismatch",
				"device_id", req.DeviceID, "idempotency_key", req.IdempotencyKey)
		}
	}

	occurredAt := req.OccurredAt()
	newEvent := event.AttendanceEvent{
		ID:              uuid.NewString(),
		TerminalUserID:  req.TerminalUserID,
		DeviceID:        req.DeviceID,
		EventType:       event.Type(req.EventType),
		OccurredAt:      occurredAt,
		OccurredAtLocal: localWall(occurredAt, s.rules.Location()),
		IdempotencyKey:  req.IdempotencyKey,
		SignatureValid:  sigValid,
		Status:          event.StatusQuarantined,
	}

	userID, err := s.DeviceRepository.ResolveUser(ctx, req.TerminalUserID, req.DeviceID)
	switch {
	case err == nil:
		newEvent.UserID = &userID
		newEvent.Status = event.StatusPending
	case errors.Is(err, device.ErrMappingNotFound):
		// Quarantined until an operator or the retry job maps the user.
	default:
		return event.EventResponse{}, false, fmt.Errorf("failed to resolve terminal user: %w", err)
	}

	stored, created, err := s.EventRepository.Create(ctx, newEvent)
	if err != nil {
		return event.EventResponse{}, false, fmt.Errorf("failed to store event: %w", err)
	}

	if created && stored.UserID != nil {
		day := stored.OccurredAtLocal.Truncate(24 * time.Hour)
		if err := s.enqueuer.Enqueue(ctx, *stored.UserID, day); err != nil {
			// The nightly close pass will pick the day up.
			slog.Error("Failed to enqueue processing job",
				"user_id", *stored.UserID, "date", day.Format("2006-01-02"), "error", err)
		}
	}

	return mapEventToResponse(stored), created, nil
}

// ResolveQuarantine implements event.IngestionService.
func (s *IngestionServiceImpl) ResolveQuarantine(ctx context.Context, req event.ResolveQuarantineRequest) (event.EventResponse, error) {
	if err := req.Validate(); err != nil {
		return event.EventResponse{}, err
	}

	existing, err := s.EventRepository.GetByID(ctx, req.EventID)
	if err != nil {
		return event.EventResponse{}, err
	}
	if !existing.IsQuarantined() {
		if existing.UserID != nil {
			return event.EventResponse{}, event.ErrAlreadyResolved
		}
		return event.EventResponse{}, event.ErrNotQuarantined
	}

	resolved, err := s.EventRepository.Resolve(ctx, req.EventID, req.TargetUserID, req.ActorID, time.Now().UTC())
	if err != nil {
		return event.EventResponse{}, err
	}

	day := resolved.OccurredAtLocal.Truncate(24 * time.Hour)
	if err := s.enqueuer.Enqueue(ctx, req.TargetUserID, day); err != nil {
		slog.Error("Failed to enqueue processing after quarantine resolution",
			"event_id", req.EventID, "error", err)
	}

	slog.Info("Quarantined event resolved",
		"event_id", req.EventID, "user_id", req.TargetUserID, "actor", req.ActorID)
	return mapEventToResponse(resolved), nil
}

// RetryQuarantined implements event.IngestionService. Catches mappings
// created after the event arrived.
func (s *IngestionServiceImpl) RetryQuarantined(ctx context.Context) (int, error) {
	quarantined, err := s.EventRepository.ListQuarantined(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list quarantined events: %w", err)
	}

	resolved := 0
	for _, e := range quarantined {
		userID, err := s.DeviceRepository.ResolveUser(ctx, e.TerminalUserID, e.DeviceID)
		if err != nil {
			if errors.Is(err, device.ErrMappingNotFound) {
				continue
			}
			return resolved, fmt.Errorf("failed to resolve terminal user: %w", err)
		}

		if _, err := s.EventRepository.Resolve(ctx, e.ID, userID, "system:quarantine-retry", time.Now().UTC()); err != nil {
			if errors.Is(err, event.ErrNotQuarantined) {
				// Lost a race with a manual resolver; fine.
				continue
			}
			return resolved, err
		}

		day := e.OccurredAtLocal.Truncate(24 * time.Hour)
		if err := s.enqueuer.Enqueue(ctx, userID, day); err != nil {
			slog.Error("Failed to enqueue processing after auto-resolution",
				"event_id", e.ID, "error", err)
		}
		resolved++
	}
	return resolved, nil
}

// ListEvents implements event.IngestionService.
func (s *IngestionServiceImpl) ListEvents(ctx context.Context, filter event.EventFilter) (event.ListEventsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	events, total, err := s.EventRepository.List(ctx, filter)
	if err != nil {
		return event.ListEventsResponse{}, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]event.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, mapEventToResponse(e))
	}

	return event.ListEventsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Events:     responses,
	}, nil
}

// ListQuarantined implements event.IngestionService.
func (s *IngestionServiceImpl) ListQuarantined(ctx context.Context) ([]event.EventResponse, error) {
	events, err := s.EventRepository.ListQuarantined(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantined events: %w", err)
	}

	responses := make([]event.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, mapEventToResponse(e))
	}
	return responses, nil
}

// GetEvent implements event.IngestionService.
func (s *IngestionServiceImpl) GetEvent(ctx context.Context, id string) (event.EventResponse, error) {
	e, err := s.EventRepository.GetByID(ctx, id)
	if err != nil {
		return event.EventResponse{}, err
	}
	return mapEventToResponse(e), nil
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}

func mapEventToResponse(e event.AttendanceEvent) event.EventResponse {
	return event.EventResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		TerminalUserID:  e.TerminalUserID,
		DeviceID:        e.DeviceID,
		EventType:       string(e.EventType),
		OccurredAt:      e.OccurredAt.Format(time.RFC3339),
		OccurredAtLocal: e.OccurredAtLocal.Format("2006-01-02 15:04:05"),
		IdempotencyKey:  e.IdempotencyKey,
		SignatureValid:  e.SignatureValid,
		Status:          string(e.Status),
		RetryCount:      e.RetryCount,
		FailureReason:   e.FailureReason,
		ResolvedBy:      e.ResolvedBy,
		ResolvedAt:      timePtrToString(e.ResolvedAt),
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}
