package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ownerIDKey  = "owner_id"
	authModeKey = "auth_mode"

	authModeToken   = "token"
	authModeSession = "session"
)

// AuthMiddleware resolves the tenant of a request. A bearer request carrying the shared sync token
// acts on the tenant named by the owner_id query parameter, or the first tenant when none is given.
// Otherwise the tenant id forwarded by the authenticating proxy in sessionHeader is used.
// The header is trusted as is, so the proxy must strip any client-supplied copy.
func AuthMiddleware(syncToken, sessionHeader string, userRepo repository.UserRepository, log *logger.Logger) echo.MiddlewareFunc {
	if sessionHeader != "" {
		log.Warn("Session header auth enabled: requests carrying it act as that tenant. Strip it at the edge and keep the engine unreachable except through the proxy",
			logger.StringField("header", sessionHeader))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if token, ok := bearerToken(c.Request()); ok {
				if syncToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(syncToken)) != 1 {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
				}

				query := dto.OwnerQuery{OwnerID: c.QueryParam("owner_id")}
				if err := validateRequest(&query); err != nil {
					return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
				}
				if query.OwnerID != "" {
					ownerID := uuid.MustParse(query.OwnerID)
					if _, err := userRepo.FindByID(ctx, ownerID); err != nil {
						if errors.Is(err, repository.ErrRecordNotFound) {
							return c.JSON(http.StatusNotFound, echo.Map{"error": "Owner not found"})
						}
						return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
					}
					c.Set(ownerIDKey, ownerID)
					c.Set(authModeKey, authModeToken)
					return next(c)
				}

				user, err := userRepo.FindFirst(ctx)
				if errors.Is(err, repository.ErrRecordNotFound) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "No tenant found"})
				}
				if err != nil {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
				}
				log.WarnContext(ctx, "Sync token request without owner_id, acting on the first tenant", logger.StringField("owner_id", user.ID.String()))
				c.Set(ownerIDKey, user.ID)
				c.Set(authModeKey, authModeToken)
				return next(c)
			}

			if sessionHeader != "" {
				if raw := c.Request().Header.Get(sessionHeader); raw != "" {
					ownerID, err := uuid.Parse(raw)
					if err != nil {
						return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid session"})
					}
					c.Set(ownerIDKey, ownerID)
					c.Set(authModeKey, authModeSession)
					return next(c)
				}
			}

			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[7:]), true
}

func ownerID(c echo.Context) uuid.UUID {
	id, _ := c.Get(ownerIDKey).(uuid.UUID)
	return id
}
