package store

import "errors"

var (
	ErrUnavailable       = errors.New("knowledge store unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNotIngested       = errors.New("knowledge store has never been ingested")
)
