package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIKeyHeader carries the api key on both the public endpoint and engine calls.
const APIKeyHeader = "x-api-key"

const findFacesPath = "/find_faces"

// Params are the recognition options forwarded to the engine.
type Params struct {
	Limit            int
	DetProbThreshold *float64
	FacePlugins      string
	Status           bool
	PredictionCount  int
}

// Image is the picture to analyse.
type Image struct {
	Data     []byte
	FileName string
}

// Box is the bounding box of a detected face.
type Box struct {
	Probability float64 `json:"probability"`
	XMin        int     `json:"x_min"`
	YMin        int     `json:"y_min"`
	XMax        int     `json:"x_max"`
	YMax        int     `json:"y_max"`
}

// Subject is a candidate identity for a face.
type Subject struct {
	Subject    string  `json:"subject"`
	Similarity float64 `json:"similarity"`
}

// FaceResult is one detected face with its predictions.
type FaceResult struct {
	Box           Box                `json:"box"`
	Subjects      []Subject          `json:"subjects"`
	Landmarks     [][]int            `json:"landmarks,omitempty"`
	ExecutionTime map[string]float64 `json:"execution_time,omitempty"`
}

// Response is the engine's answer.
type Response struct {
	Result          []FaceResult      `json:"result"`
	PluginsVersions map[string]string `json:"plugins_versions,omitempty"`
}

// Recognizer recognizes faces in an image.
type Recognizer interface {
	Recognize(ctx context.Context, apiKey string, img Image, p Params) (*Response, error)
}

// EngineError is returned when the engine answers with a non-2xx status.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("recognition engine: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the recognition engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Recognizer = (*Client)(nil)

// NewClient creates an engine client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Recognize uploads img and decodes the engine's answer.
func (c *Client) Recognize(ctx context.Context, apiKey string, img Image, p Params) (*Response, error) {
	body, contentType, err := multipartBody(img)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + findFacesPath + "?" + query(p).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(APIKeyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &EngineError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	return &out, nil
}

func query(p Params) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("prediction_count", strconv.Itoa(p.PredictionCount))
	q.Set("status", strconv.FormatBool(p.Status))
	if p.FacePlugins != "" {
		q.Set("face_plugins", p.FacePlugins)
	}
	if p.DetProbThreshold != nil {
		q.Set("det_prob_threshold", strconv.FormatFloat(*p.DetProbThreshold, 'f', -1, 64))
	}
	return q
}

func multipartBody(img Image) (io.Reader, string, error) {
	name := img.FileName
	if name == "" {
		name = "image"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
