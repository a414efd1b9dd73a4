package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmbeddingRecord logs how long the recognition engine took to process one
// request for a given api key. Every recognition call produces a record
// regardless of its outcome.
type EmbeddingRecord struct {
	ID               uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	APIKey           string    `json:"api_key" gorm:"size:64;not null;index:idx_embedding_key_created,priority:1"`
	ProcessingTimeMs int64     `json:"processing_time_ms" gorm:"not null"`
	FacesCount       int       `json:"faces_count" gorm:"not null;default:0"`
	Failed           bool      `json:"failed" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at" gorm:"index:idx_embedding_key_created,priority:2"`
}

// BeforeCreate sets UUID before creating the record.
func (r *EmbeddingRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
