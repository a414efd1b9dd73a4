package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "frs/internal/errors"
	"frs/internal/model"
	"frs/internal/repository"
)

// MaxTimeWindowMinutes is the widest history window accepted, one year.
const MaxTimeWindowMinutes = 365 * 24 * 60

// EmbeddingService queries recorded embedding processing times.
type EmbeddingService interface {
	ListEmbeddingsByTime(ctx context.Context, apiKey string, minutes int) ([]model.EmbeddingRecord, error)
}

type embeddingService struct {
	repo repository.EmbeddingRepository
	now  func() time.Time
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(repo repository.EmbeddingRepository) EmbeddingService {
	return &embeddingService{repo: repo, now: time.Now}
}

// ListEmbeddingsByTime returns the records of apiKey from the last minutes minutes, newest first.
func (s *embeddingService) ListEmbeddingsByTime(ctx context.Context, apiKey string, minutes int) ([]model.EmbeddingRecord, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.ErrMissingAPIKey
	}
	if minutes < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "time must be >= 1")
	}
	if minutes > MaxTimeWindowMinutes {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "time must be <= %d", MaxTimeWindowMinutes)
	}

	since := s.now().Add(-time.Duration(minutes) * time.Minute)
	records, err := s.repo.ListByAPIKeySince(ctx, apiKey, since)
	if err != nil {
		return nil, fmt.Errorf("list embedding records: %w", err)
	}
	if records == nil {
		records = []model.EmbeddingRecord{}
	}
	return records, nil
}
