package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"frs/internal/auth"
	"frs/internal/config"
	"frs/internal/handler"
)

// RecognitionBodyLimit caps recognition request bodies. It leaves room for
// base64 encoding and multipart framing around a 10MB image.
const RecognitionBodyLimit = "15M"

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	userHandler *handler.UserHandler,
	authHandler *handler.AuthHandler,
	recognitionHandler *handler.RecognitionHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	// Public routes
	api.POST("/user/register", userHandler.Register)
	api.GET("/user/registration/confirm", userHandler.ConfirmRegistration)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Recognition routes authenticate with the x-api-key header
	recognition := api.Group("/recognition", middleware.BodyLimit(RecognitionBodyLimit))
	recognition.POST("/recognize", recognitionHandler.Recognize)
	recognition.GET("/recognize", recognitionHandler.ListEmbeddings)

	// Secured routes (require an access token)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return jwtService.ParseAccessToken(token)
		},
	}))

	secured.GET("/user/me", userHandler.Me)
	secured.GET("/user/:id", userHandler.GetUser)
	secured.PUT("/user/:id", userHandler.UpdateUser)
	secured.DELETE("/user/:id", userHandler.DeleteUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by the handlers.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
