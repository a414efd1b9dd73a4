package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frs/internal/model"
)

func TestEmbeddingRepository_ListByAPIKeySince(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewEmbeddingRepository(db)

	since := time.Now().Add(-time.Hour)
	newer := time.Now()
	older := newer.Add(-10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `embedding_records` WHERE api_key = ? AND created_at >= ? ORDER BY created_at DESC")).
		WithArgs("key-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "api_key", "processing_time_ms", "faces_count", "failed", "created_at"}).
			AddRow(uuid.NewString(), "key-1", 120, 2, false, newer).
			AddRow(uuid.NewString(), "key-1", 80, 1, false, older))

	records, err := repo.ListByAPIKeySince(context.Background(), "key-1", since)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(120), records[0].ProcessingTimeMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepository_CreateBatchEmpty(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewEmbeddingRepository(db)

	assert.NoError(t, repo.CreateBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepository_CreateBatch(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewEmbeddingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `embedding_records`")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.CreateBatch(context.Background(), []model.EmbeddingRecord{
		{APIKey: "key-1", ProcessingTimeMs: 10},
		{APIKey: "key-1", ProcessingTimeMs: 20},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
