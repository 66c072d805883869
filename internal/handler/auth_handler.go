package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "userapi/internal/errors"
	"userapi/internal/service"
)

// AuthHandler handles registration and credential verification.
type AuthHandler struct {
	accounts service.AccountService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterRequest represents a user registration request. Additional body
// fields beyond these become the initial profile document. Only username
// and password are mandatory; any non-empty password is accepted.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

// LoginRequest represents a credential verification request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Register godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data plus optional profile fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalidRequestResponse())
	}

	req := RegisterRequest{
		Username: stringField(body, "username"),
		Password: stringField(body, "password"),
		Name:     stringField(body, "name"),
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalidRequestResponse())
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Username, req.Password, req.Name, extraFields(body))
	if err != nil {
		if httpErr := apperrors.MapErrorToHTTP(err); httpErr.StatusCode == http.StatusConflict {
			return echo.NewHTTPError(http.StatusConflict, httpErr.ToErrorResponse())
		}
		// Hashing and store failures answer 404 on this route; clients of
		// the original API depend on it.
		return echo.NewHTTPError(http.StatusNotFound, apperrors.ErrorResponse{
			Error: "failed to register user",
			Code:  "REGISTRATION_FAILED",
		})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":       user.ID.String(),
		"name":     user.Name,
		"username": user.Username,
	})
}

// Login godoc
// @Summary Authenticate and receive a bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/auth [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalidRequestResponse())
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalidRequestResponse())
	}

	token, err := h.accounts.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// stringField reads a string value out of a decoded JSON body.
func stringField(body map[string]any, key string) string {
	if s, ok := body[key].(string); ok {
		return s
	}
	return ""
}

// extraFields returns the body minus the fixed registration fields; the
// remainder seeds the profile document.
func extraFields(body map[string]any) map[string]any {
	extra := make(map[string]any, len(body))
	for key, value := range body {
		switch key {
		case "username", "password", "name", "oldPassword":
			continue
		}
		extra[key] = value
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
