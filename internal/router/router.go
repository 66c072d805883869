package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"userapi/internal/auth"
	"userapi/internal/config"
	apperrors "userapi/internal/errors"
	"userapi/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	gate *auth.RequestGate,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.GET("/users/all", userHandler.ListUsers)
	api.POST("/users", authHandler.Register)
	api.POST("/users/auth", authHandler.Login)

	// Protected routes. Each route answers bearer failures with its own
	// status code, so the middleware is applied per route rather than on a
	// shared group.
	api.GET("/users", userHandler.GetProfile, BearerAuth(gate, http.StatusBadRequest))
	api.PATCH("/users", userHandler.UpdateProfile, BearerAuth(gate, http.StatusBadRequest))
	api.DELETE("/users", userHandler.DeleteAccount, BearerAuth(gate, http.StatusNotFound))
}

// BearerAuth authenticates the Authorization header through the request
// gate and stores the resulting user ID in the context. Failures answer
// with failureStatus and never reach the handler.
func BearerAuth(gate *auth.RequestGate, failureStatus int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := gate.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(failureStatus, apperrors.ErrorResponse{
					Error: "authentication required",
					Code:  "UNAUTHENTICATED",
				})
			}
			c.Set(handler.ContextUserIDKey, userID)
			return next(c)
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
