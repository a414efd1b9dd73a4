package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "frs/internal/errors"
	"frs/internal/model"
	"frs/internal/recognition"
	"frs/internal/repository"
)

const (
	recordBatchSize     = 10
	recordFlushInterval = time.Second
	recordQueueSize     = 100
)

// ProcessImageParams describes one recognition request. Exactly one of File
// and ImageBase64 is set.
type ProcessImageParams struct {
	APIKey           string
	File             []byte
	FileName         string
	ImageBase64      string
	Limit            int
	DetProbThreshold *float64
	FacePlugins      string
	Status           bool
	PredictionCount  int
}

// RecognitionService forwards images to the recognition engine and records
// how long each call took.
type RecognitionService interface {
	ProcessImage(ctx context.Context, params ProcessImageParams) (*recognition.Response, error)
	// Close flushes pending embedding records and stops the background writer.
	Close()
}

type recognitionService struct {
	recognizer recognition.Recognizer
	records    repository.EmbeddingRepository
	logger     *slog.Logger
	now        func() time.Time

	// mu guards closed and sends on recordCh.
	mu        sync.RWMutex
	closed    bool
	recordCh  chan model.EmbeddingRecord
	done      chan struct{}
	closeOnce sync.Once
}

// NewRecognitionService creates a recognition service and starts its record writer.
func NewRecognitionService(recognizer recognition.Recognizer, records repository.EmbeddingRepository, logger *slog.Logger) RecognitionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &recognitionService{
		recognizer: recognizer,
		records:    records,
		logger:     logger,
		now:        time.Now,
		recordCh:   make(chan model.EmbeddingRecord, recordQueueSize),
		done:       make(chan struct{}),
	}

	go s.recordWorker()

	return s
}

// recordWorker writes embedding records in batches.
func (s *recognitionService) recordWorker() {
	defer close(s.done)
	ctx := context.Background()
	batch := make([]model.EmbeddingRecord, 0, recordBatchSize)
	ticker := time.NewTicker(recordFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.records.CreateBatch(ctx, batch); err != nil {
			s.logger.Error("recognition: write embedding records", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-s.recordCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= recordBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *recognitionService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.recordCh)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *recognitionService) ProcessImage(ctx context.Context, params ProcessImageParams) (*recognition.Response, error) {
	img, err := validateProcessImage(params)
	if err != nil {
		return nil, err
	}

	started := s.now()
	resp, err := s.recognizer.Recognize(ctx, params.APIKey, img, recognition.Params{
		Limit:            params.Limit,
		DetProbThreshold: params.DetProbThreshold,
		FacePlugins:      params.FacePlugins,
		Status:           params.Status,
		PredictionCount:  params.PredictionCount,
	})
	elapsed := s.now().Sub(started)

	record := model.EmbeddingRecord{
		APIKey:           params.APIKey,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Failed:           err != nil,
	}
	if resp != nil {
		record.FacesCount = len(resp.Result)
	}
	s.record(ctx, record)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRecognitionEngine, err)
	}
	return resp, nil
}

// record queues rec for the batch writer, falling back to a direct insert
// when the queue is full or the writer has been closed.
func (s *recognitionService) record(ctx context.Context, rec model.EmbeddingRecord) {
	s.mu.RLock()
	if !s.closed {
		select {
		case s.recordCh <- rec:
			s.mu.RUnlock()
			return
		default:
		}
	}
	s.mu.RUnlock()

	if err := s.records.Create(context.WithoutCancel(ctx), &rec); err != nil {
		s.logger.ErrorContext(ctx, "recognition: write embedding record", "error", err)
	}
}

func validateProcessImage(p ProcessImageParams) (recognition.Image, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return recognition.Image{}, apperrors.ErrMissingAPIKey
	}
	if p.Limit < 0 {
		return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "limit must be >= 0")
	}
	if p.PredictionCount < 1 {
		return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "prediction_count must be >= 1")
	}
	if t := p.DetProbThreshold; t != nil && (*t < 0 || *t > 1) {
		return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "det_prob_threshold must be within [0, 1]")
	}

	hasFile := len(p.File) > 0
	hasBase64 := strings.TrimSpace(p.ImageBase64) != ""
	switch {
	case hasFile && hasBase64:
		return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "send either a file or base64 content, not both")
	case hasFile:
		return recognition.Image{Data: p.File, FileName: p.FileName}, nil
	case hasBase64:
		data, err := decodeBase64Image(p.ImageBase64)
		if err != nil {
			return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "file is not valid base64")
		}
		return recognition.Image{Data: data, FileName: p.FileName}, nil
	default:
		return recognition.Image{}, apperrors.Wrap(apperrors.ErrInvalidRecognitionParams, "image is required")
	}
}

// decodeBase64Image accepts raw base64 as well as data URIs ("data:image/png;base64,...").
func decodeBase64Image(content string) ([]byte, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "data:") {
		if i := strings.Index(content, ","); i >= 0 {
			content = content[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}
