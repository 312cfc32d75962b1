package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/processing"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type processingLogRepository struct {
	db *database.DB
}

func NewProcessingLogRepository(db *database.DB) processing.LogRepository {
	return &processingLogRepository{db: db}
}

// Create implements processing.LogRepository.
func (r *processingLogRepository) Create(ctx context.Context, log processing.Log) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO processing_logs (
			id, user_id, date, success, message, event_count, duration_ms, actor
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		log.ID, log.UserID, log.Date, log.Success,
		log.Message, log.EventCount, log.DurationMS, log.Actor,
	)
	if err != nil {
		return fmt.Errorf("failed to create processing log: %w", err)
	}
	return nil
}
