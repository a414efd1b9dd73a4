package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"frs/internal/model"
)

// EmbeddingRepository defines embedding record persistence operations.
type EmbeddingRepository interface {
	Create(ctx context.Context, record *model.EmbeddingRecord) error
	CreateBatch(ctx context.Context, records []model.EmbeddingRecord) error
	ListByAPIKeySince(ctx context.Context, apiKey string, since time.Time) ([]model.EmbeddingRecord, error)
}

type embeddingRepository struct {
	db *gorm.DB
}

// NewEmbeddingRepository creates a new embedding record repository.
func NewEmbeddingRepository(db *gorm.DB) EmbeddingRepository {
	return &embeddingRepository{db: db}
}

// Create creates a single embedding record.
func (r *embeddingRepository) Create(ctx context.Context, record *model.EmbeddingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CreateBatch creates multiple embedding records in batches of 100.
func (r *embeddingRepository) CreateBatch(ctx context.Context, records []model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(records, 100).Error
}

// ListByAPIKeySince returns records for apiKey created at or after since, newest first.
func (r *embeddingRepository) ListByAPIKeySince(ctx context.Context, apiKey string, since time.Time) ([]model.EmbeddingRecord, error) {
	var records []model.EmbeddingRecord
	err := r.db.WithContext(ctx).
		Where("api_key = ? AND created_at >= ?", apiKey, since).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
