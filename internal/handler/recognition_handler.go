package handler

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"frs/internal/errors"
	"frs/internal/recognition"
	"frs/internal/service"
)

const (
	defaultPredictionCount = 1
	defaultTimeWindow      = 60
	maxUploadSize          = 10 << 20
)

// RecognitionHandler exposes face recognition and its processing-time history.
type RecognitionHandler struct {
	recognizer service.RecognitionService
	embeddings service.EmbeddingService
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(recognizer service.RecognitionService, embeddings service.EmbeddingService) *RecognitionHandler {
	return &RecognitionHandler{recognizer: recognizer, embeddings: embeddings}
}

// Base64Request carries a base64 encoded image.
type Base64Request struct {
	File string `json:"file"`
}

// EmbeddingView is one processing-time record.
type EmbeddingView struct {
	ID               uuid.UUID `json:"id"`
	APIKey           string    `json:"api_key"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	FacesCount       int       `json:"faces_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Recognize godoc
// @Summary Recognize faces
// @Description Accepts either a multipart "file" upload or a JSON body {"file": "<base64>"}.
// @Tags recognition
// @Accept mpfd,json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param file formData file false "Image"
// @Param limit query int false "Maximum number of faces" default(0)
// @Param prediction_count query int false "Subjects per face" default(1)
// @Param det_prob_threshold query number false "Detection threshold in [0, 1]"
// @Param face_plugins query string false "Comma separated plugin list"
// @Param status query bool false "Include plugin versions" default(false)
// @Success 200 {object} recognition.Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /recognition/recognize [post]
func (h *RecognitionHandler) Recognize(c echo.Context) error {
	params, err := recognitionParams(c)
	if err != nil {
		return httpError(err)
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req Base64Request
		if err := c.Bind(&req); err != nil {
			if tooLarge(err) {
				return payloadTooLarge()
			}
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid request body",
				Code:  "INVALID_REQUEST",
			})
		}
		params.ImageBase64 = req.File
	} else {
		fh, err := c.FormFile("file")
		if err != nil {
			if tooLarge(err) {
				return payloadTooLarge()
			}
			return httpError(errors.Wrap(errors.ErrInvalidRecognitionParams, "file is required"))
		}
		if fh.Size > maxUploadSize {
			return httpError(errors.Wrap(errors.ErrInvalidRecognitionParams, "file exceeds %d bytes", maxUploadSize))
		}
		f, err := fh.Open()
		if err != nil {
			return httpError(err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return httpError(err)
		}
		params.File = data
		params.FileName = fh.Filename
	}

	resp, err := h.recognizer.ProcessImage(c.Request().Context(), params)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListEmbeddings godoc
// @Summary List processing times
// @Description Embedding processing-time records of the api key, newest first.
// @Tags recognition
// @Produce json
// @Param x-api-key header string true "API key"
// @Param time query int false "Window in minutes" default(60)
// @Success 200 {array} EmbeddingView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /recognition/recognize [get]
func (h *RecognitionHandler) ListEmbeddings(c echo.Context) error {
	minutes, err := intQuery(c, "time", defaultTimeWindow)
	if err != nil {
		return httpError(err)
	}

	records, err := h.embeddings.ListEmbeddingsByTime(c.Request().Context(), c.Request().Header.Get(recognition.APIKeyHeader), minutes)
	if err != nil {
		return httpError(err)
	}

	views := make([]EmbeddingView, 0, len(records))
	for _, r := range records {
		views = append(views, EmbeddingView{
			ID:               r.ID,
			APIKey:           r.APIKey,
			ProcessingTimeMs: r.ProcessingTimeMs,
			FacesCount:       r.FacesCount,
			CreatedAt:        r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// tooLarge reports whether err came from the body limit middleware.
func tooLarge(err error) bool {
	return stderrors.Is(err, echo.ErrStatusRequestEntityTooLarge)
}

func payloadTooLarge() error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge, errors.ErrorResponse{
		Error: "request body too large",
		Code:  "PAYLOAD_TOO_LARGE",
	})
}

func recognitionParams(c echo.Context) (service.ProcessImageParams, error) {
	p := service.ProcessImageParams{
		APIKey:      c.Request().Header.Get(recognition.APIKeyHeader),
		FacePlugins: c.QueryParam("face_plugins"),
	}
	if p.APIKey == "" {
		return p, errors.ErrMissingAPIKey
	}

	var err error
	if p.Limit, err = intQuery(c, "limit", 0); err != nil {
		return p, err
	}
	if p.PredictionCount, err = intQuery(c, "prediction_count", defaultPredictionCount); err != nil {
		return p, err
	}
	if raw := c.QueryParam("det_prob_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, errors.Wrap(errors.ErrInvalidRecognitionParams, "det_prob_threshold must be a number")
		}
		p.DetProbThreshold = &v
	}
	if raw := c.QueryParam("status"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return p, errors.Wrap(errors.ErrInvalidRecognitionParams, "status must be a boolean")
		}
		p.Status = v
	}
	return p, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrap(errors.ErrInvalidRecognitionParams, "%s must be an integer", name)
	}
	return v, nil
}
