package recognition

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, findFacesPath, r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "3", r.URL.Query().Get("prediction_count"))
		assert.Equal(t, "0.8", r.URL.Query().Get("det_prob_threshold"))
		assert.Equal(t, "age,gender", r.URL.Query().Get("face_plugins"))
		assert.Equal(t, "true", r.URL.Query().Get("status"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "face.jpg", header.Filename)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[{"box":{"probability":0.99,"x_min":1,"y_min":2,"x_max":3,"y_max":4},"subjects":[{"subject":"ann","similarity":0.97}]}]}`))
	}))
	defer srv.Close()

	threshold := 0.8
	resp, err := NewClient(srv.URL+"/", time.Second).Recognize(context.Background(), "key-1",
		Image{Data: []byte("jpeg-bytes"), FileName: "face.jpg"},
		Params{Limit: 2, PredictionCount: 3, DetProbThreshold: &threshold, FacePlugins: "age,gender", Status: true})
	require.NoError(t, err)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "ann", resp.Result[0].Subjects[0].Subject)
	assert.Equal(t, 4, resp.Result[0].Box.YMax)
}

func TestClient_Recognize_OmitsOptionalParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("det_prob_threshold"))
		assert.False(t, r.URL.Query().Has("face_plugins"))
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).Recognize(context.Background(), "k", Image{Data: []byte("x")}, Params{PredictionCount: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.Result)
}

func TestClient_Recognize_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no face found", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Recognize(context.Background(), "k", Image{Data: []byte("x")}, Params{PredictionCount: 1})

	var engineErr *EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, http.StatusBadRequest, engineErr.StatusCode)
	assert.Equal(t, "no face found", engineErr.Message)
}

func TestClient_Recognize_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Recognize(context.Background(), "k", Image{Data: []byte("x")}, Params{PredictionCount: 1})
	assert.ErrorContains(t, err, "decode engine response")
}
