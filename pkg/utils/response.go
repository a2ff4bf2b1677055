package utils

import (
	"errors"
	"net/http"

	"cold-storage-marketplace/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service errors onto HTTP answers. Anything unrecognised is
// logged and reported as a generic, retryable backend failure.
func HandleServiceError(c echo.Context, err error) error {
	var authErr *models.AuthRequiredError
	if errors.As(err, &authErr) {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Message:    "Please sign in to continue",
			ReturnPath: authErr.ReturnPath,
		})
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Message: "Validation failed",
			Fields:  verr.Fields,
		})
	}

	switch {
	case errors.Is(err, models.ErrPlanNotFound):
		return RespondWithError(c, http.StatusNotFound, "Logistics plan not found")
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrForbidden):
		return RespondWithError(c, http.StatusForbidden, "You are not allowed to perform this action")
	case errors.Is(err, models.ErrInvalidCredentials):
		return RespondWithError(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, models.ErrInvalidToken):
		return RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, models.ErrPaymentFailed):
		return RespondWithError(c, http.StatusPaymentRequired, "Payment failed, please check your payment details and try again")
	case errors.Is(err, models.ErrSubmissionInFlight):
		return RespondWithError(c, http.StatusConflict, "This request is already being processed")
	case errors.Is(err, models.ErrWarehouseUnavailable):
		return RespondWithError(c, http.StatusConflict, "This warehouse is not currently available")
	case errors.Is(err, models.ErrInvalidStatusTransition):
		return RespondWithError(c, http.StatusConflict, "Booking status cannot be changed that way")
	case errors.Is(err, models.ErrHasOpenBookings):
		return RespondWithError(c, http.StatusConflict, "Resource still has pending or confirmed bookings")
	case errors.Is(err, models.ErrConflict):
		return RespondWithError(c, http.StatusConflict, "Resource already exists")
	case errors.Is(err, models.ErrInvalidInput):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	zap.L().Error("unhandled service error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return RespondWithError(c, http.StatusInternalServerError, "Something went wrong, please try again")
}
