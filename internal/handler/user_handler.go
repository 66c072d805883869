package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "userapi/internal/errors"
	"userapi/internal/service"
)

// ContextUserIDKey is the echo context key under which the bearer
// middleware stores the authenticated user ID.
const ContextUserIDKey = "userID"

// UserHandler handles profile and account-mutation endpoints.
type UserHandler struct {
	accounts service.AccountService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(accounts service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// DeleteRequest carries the password proof for account deletion.
type DeleteRequest struct {
	Password string `json:"password"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} service.PublicUser
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/all [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.accounts.ListUsers(c.Request().Context())
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, users)
}

// GetProfile godoc
// @Summary Get the authenticated user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 400 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, unauthenticatedResponse())
	}

	profile, err := h.accounts.GetProfile(c.Request().Context(), userID)
	if err != nil {
		// Every failure on this route answers 400, not-found included.
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(http.StatusBadRequest, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Partially update the authenticated user's profile or password
// @Tags users
// @Accept json
// @Security BearerAuth
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, unauthenticatedResponse())
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalidRequestResponse())
	}

	if err := h.accounts.UpdateProfile(c.Request().Context(), userID, patch); err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		if httpErr.StatusCode == http.StatusUnauthorized {
			return echo.NewHTTPError(http.StatusUnauthorized, httpErr.ToErrorResponse())
		}
		return echo.NewHTTPError(http.StatusBadRequest, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount godoc
// @Summary Permanently delete the authenticated user's account
// @Tags users
// @Accept json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, unauthenticatedResponse())
	}

	var req DeleteRequest
	if err := c.Bind(&req); err != nil {
		// still the invalid-request category, but this route answers 404
		return echo.NewHTTPError(http.StatusNotFound, invalidRequestResponse())
	}

	if err := h.accounts.Delete(c.Request().Context(), userID, req.Password); err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		if httpErr.StatusCode == http.StatusUnauthorized {
			return echo.NewHTTPError(http.StatusUnauthorized, httpErr.ToErrorResponse())
		}
		return echo.NewHTTPError(http.StatusNotFound, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}

func authenticatedUserID(c echo.Context) (string, bool) {
	userID, ok := c.Get(ContextUserIDKey).(string)
	return userID, ok && userID != ""
}

func unauthenticatedResponse() apperrors.ErrorResponse {
	return apperrors.ErrorResponse{
		Error: "authentication required",
		Code:  "UNAUTHENTICATED",
	}
}

// invalidRequestResponse is the body for bind and validation failures; the
// status code stays route-specific.
func invalidRequestResponse() apperrors.ErrorResponse {
	return apperrors.MapErrorToHTTP(apperrors.ErrInvalidRequest).ToErrorResponse()
}
