package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frs/internal/auth"
	"frs/internal/config"
	"frs/internal/handler"
	"frs/internal/recognition"
)

func newTestServer() *echo.Echo {
	e := echo.New()
	Register(e, &config.Config{JWTSecret: "test-secret"},
		handler.NewUserHandler(nil),
		handler.NewAuthHandler(nil),
		handler.NewRecognitionHandler(nil, nil),
	)
	return e
}

func TestRegister_Healthz(t *testing.T) {
	e := newTestServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegister_SecuredRoutesNeedToken(t *testing.T) {
	e := newTestServer()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/user/me"},
		{http.MethodGet, "/api/v1/user/1"},
		{http.MethodPut, "/api/v1/user/1"},
		{http.MethodDelete, "/api/v1/user/1"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegister_RecognitionNeedsAPIKey(t *testing.T) {
	e := newTestServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recognition/recognize", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_API_KEY")
}

func TestRegister_SecuredRoutesAcceptOnlyAccessTokens(t *testing.T) {
	e := newTestServer()
	jwtService := auth.NewJWTService("test-secret")

	access, err := jwtService.GenerateAccessToken(2, "a@example.com")
	require.NoError(t, err)
	_, refresh, err := jwtService.GenerateRefreshToken(2, "a@example.com")
	require.NoError(t, err)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user/1", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	// the access token is parsed and reaches the ownership check
	rec := get(access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	assert.Equal(t, http.StatusUnauthorized, get(refresh).Code)
}

func TestRegister_RecognitionBodyLimit(t *testing.T) {
	e := newTestServer()
	body := `{"file":"` + strings.Repeat("A", 16<<20) + `"}`

	// rejected from Content-Length alone
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognition/recognize", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(recognition.APIKeyHeader, "key-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// rejected while reading a body of unknown length
	req = httptest.NewRequest(http.MethodPost, "/api/v1/recognition/recognize", strings.NewReader(body))
	req.ContentLength = -1
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(recognition.APIKeyHeader, "key-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestCustomValidator(t *testing.T) {
	v := NewValidator()
	type payload struct {
		Email string `validate:"required,email"`
	}
	require.NoError(t, v.Validate(&payload{Email: "a@b.co"}))
	assert.Error(t, v.Validate(&payload{Email: "nope"}))
}
