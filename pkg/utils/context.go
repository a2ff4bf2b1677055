package utils

import (
	"net/http"
	"strconv"

	"cold-storage-marketplace/internal/models"

	"github.com/labstack/echo/v4"
)

const (
	// SessionContextKey is where the auth middleware stores the *models.Session.
	SessionContextKey = "session"
	// ClaimsContextKey holds the verified *models.JwtCustomClaims of the request token.
	ClaimsContextKey = "claims"
)

// SessionFromContext returns the signed-in session, or nil for anonymous requests.
func SessionFromContext(c echo.Context) *models.Session {
	s, _ := c.Get(SessionContextKey).(*models.Session)
	return s
}

// ClaimsFromContext returns the verified token claims, or nil for anonymous requests.
func ClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(ClaimsContextKey).(*models.JwtCustomClaims)
	return claims
}

// ExtractUserInfo returns the user id and role of an authenticated request.
// It writes a 401 answer and returns a non-nil error when the request is anonymous.
func ExtractUserInfo(c echo.Context) (string, string, error) {
	s := SessionFromContext(c)
	if s == nil {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or invalid session"})
	}
	return s.UserID, s.Role, nil
}

// GetPageLimit reads page/limit query parameters, defaulting to page 1 of 20.
func GetPageLimit(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// ParseInt64Param parses a positive integer path parameter.
func ParseInt64Param(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
