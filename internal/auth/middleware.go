package auth

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "patientrecords/internal/errors"
)

const (
	tokenContextKey    = "user"
	identityContextKey = "identity"
)

// JWTMiddleware verifies the bearer token and stores the parsed *jwt.Token on the context.
// Every verification failure is reported as Unauthenticated.
func JWTMiddleware(jwtService *JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    jwtService.Secret(),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    tokenContextKey,
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.ErrUnauthenticated
		},
	})
}

// Authenticate turns the verified token into an Identity.
// Refresh tokens and blacklisted access tokens are rejected.
func Authenticate(tokens TokenStoreInterface, log *logrus.Logger) echo.MiddlewareFunc {
	entry := log.WithField("component", "auth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok || !token.Valid {
				return apperrors.ErrUnauthenticated
			}
			claims, ok := token.Claims.(*Claims)
			if !ok || claims.Type != TokenTypeAccess || claims.UserID == 0 {
				return apperrors.ErrUnauthenticated
			}

			if tokens != nil && claims.ID != "" {
				revoked, err := tokens.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if err != nil {
					entry.WithError(err).Warn("blacklist lookup failed")
				}
				if revoked {
					return apperrors.ErrUnauthenticated
				}
			}

			id := &Identity{
				UserID:  claims.UserID,
				Email:   claims.Email,
				Role:    claims.Role,
				TokenID: claims.ID,
			}
			if claims.ExpiresAt != nil {
				id.ExpiresAt = claims.ExpiresAt.Time
			}
			c.Set(identityContextKey, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity attached by Authenticate, or nil.
func IdentityFrom(c echo.Context) *Identity {
	id, _ := c.Get(identityContextKey).(*Identity)
	return id
}

// RequireOperation guards a route with Authorize. It runs before the handler reads the body.
func RequireOperation(op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(IdentityFrom(c), op); err != nil {
				return err
			}
			return next(c)
		}
	}
}
