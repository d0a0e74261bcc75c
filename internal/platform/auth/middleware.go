package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const DraftIDKey contextKey = "draft_id"

// RequireDraftSession accepts only requests whose bearer token was issued for
// the draft named by the param route parameter.
func RequireDraftSession(issuer *Issuer, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.DraftID != c.Param(param) {
				return echo.NewHTTPError(http.StatusForbidden, "token does not grant access to this draft")
			}

			c.Set("draft_id", claims.DraftID)
			ctx := context.WithValue(c.Request().Context(), DraftIDKey, claims.DraftID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func DraftIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(DraftIDKey).(string)
	return id
}
