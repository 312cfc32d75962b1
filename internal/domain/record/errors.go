package record

import "errors"

// Record domain errors
var (
	ErrRecordNotFound    = errors.New("attendance record not found")
	ErrRecordLocked      = errors.New("attendance record is locked")
	ErrNotLocked         = errors.New("attendance record is not locked")
	ErrReasonTooShort    = errors.New("adjustment reason must be at least 10 characters")
	ErrInvalidAdjustment = errors.New("invalid adjustment request")
)
