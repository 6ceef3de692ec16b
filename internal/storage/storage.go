// Package storage persists the ingestion history: one record per ingestion
// attempt plus the chunks of successful ones.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines ingestion history persistence.
type Storage interface {
	// RecordIngestion stores rec and, when non-empty, the chunks it produced.
	RecordIngestion(ctx context.Context, rec *models.Ingestion, chunks []*models.Chunk) error
	GetIngestion(ctx context.Context, id string) (*models.Ingestion, error)
	// ListIngestions returns a session's ingestions, newest first. limit <= 0 means no limit.
	ListIngestions(ctx context.Context, sessionID string, limit int) ([]*models.Ingestion, error)
	GetIngestionChunks(ctx context.Context, ingestionID string) ([]*models.Chunk, error)
	// DeleteSession removes every record of a session.
	DeleteSession(ctx context.Context, sessionID string) error

	CountIngestions(ctx context.Context) (int64, error)

	Close() error
}
