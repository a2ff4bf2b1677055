package middleware

import (
	"context"
	"errors"
	"net/http"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProfileFinder loads the profile behind a token.
type ProfileFinder interface {
	FindByID(ctx context.Context, userID string) (*models.UserProfile, error)
}

// RevocationChecker reports whether a token id was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func jwtConfig(jwtSecretKey string) echojwt.Config {
	return echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.JwtCustomClaims)
		},
		SigningKey: []byte(jwtSecretKey),
		SuccessHandler: func(c echo.Context) {
			// "user" is the default context key used by echo-jwt
			userToken := c.Get("user").(*jwt.Token)
			c.Set(utils.ClaimsContextKey, userToken.Claims.(*models.JwtCustomClaims))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			zap.L().Debug("jwt rejected", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: jwtErrorMessage(err)})
		},
	}
}

func jwtErrorMessage(err error) string {
	switch {
	case errors.Is(err, echojwt.ErrJWTMissing):
		return "Missing or malformed JWT"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Token is malformed"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	}
	return "Invalid or expired JWT"
}

// JWTAuth rejects requests without a valid bearer token.
func JWTAuth(jwtSecretKey string) echo.MiddlewareFunc {
	return echojwt.WithConfig(jwtConfig(jwtSecretKey))
}

// OptionalJWTAuth verifies a bearer token when one is sent and lets anonymous
// requests through. The workflows answer anonymous submissions themselves.
func OptionalJWTAuth(jwtSecretKey string) echo.MiddlewareFunc {
	config := jwtConfig(jwtSecretKey)
	config.ContinueOnIgnoredError = true
	// A nil return here lets the request through, so a bad token must come back
	// as an error rather than a written response.
	config.ErrorHandler = func(c echo.Context, err error) error {
		if errors.Is(err, echojwt.ErrJWTMissing) {
			return nil
		}
		return echo.NewHTTPError(http.StatusUnauthorized, models.ErrorResponse{Message: jwtErrorMessage(err)})
	}
	return echojwt.WithConfig(config)
}

// SessionLoader turns verified claims into a *models.Session. The role comes from
// the profile row so role changes and deletions apply without a new token.
// Requests without claims pass through anonymous.
func SessionLoader(profiles ProfileFinder, revocations RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := utils.ClaimsFromContext(c)
			if claims == nil {
				return next(c)
			}
			ctx := c.Request().Context()

			if claims.ID != "" && revocations != nil {
				revoked, err := revocations.IsRevoked(ctx, claims.ID)
				if err != nil {
					zap.L().Error("token revocation check failed", zap.Error(err))
					return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "Could not verify session, please try again"})
				}
				if revoked {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Session has been signed out"})
				}
			}

			profile, err := profiles.FindByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Account no longer exists"})
				}
				return utils.HandleServiceError(c, err)
			}

			c.Set(utils.SessionContextKey, profile.Session())
			return next(c)
		}
	}
}

// AdminRequired allows only sessions whose profile role is admin.
func AdminRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := utils.SessionFromContext(c)
			if session == nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or invalid session"})
			}
			if !session.IsAdmin() {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Admin access required"})
			}
			return next(c)
		}
	}
}
