package middleware

import (
	"errors"
	"strconv"
	"strings"

	"flatpages/internal/config"
	"flatpages/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookie is the cookie the login endpoint stores the session token in.
const TokenCookie = "flatpages_token"

const viewerLocal = "viewer"

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ParseViewerToken validates a signed session token and returns the viewer it identifies.
func ParseViewerToken(secret, tokenString string) (models.Viewer, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Anonymous, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Anonymous, errors.New("invalid token claims")
	}

	// Subject claim carries the user ID as a string per RFC 7519.
	subStr, ok := claims["sub"].(string)
	if !ok {
		return models.Anonymous, errors.New("invalid token subject")
	}
	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || userID == 0 {
		return models.Anonymous, errors.New("invalid user ID in token")
	}

	staff, _ := claims["staff"].(bool)
	return models.Viewer{UserID: uint(userID), Authenticated: true, IsStaff: staff}, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Cookies(TokenCookie)
}

// IdentifyViewer resolves the request's viewer from a bearer token or the
// session cookie. Missing or invalid tokens leave the request anonymous.
func IdentifyViewer(c *fiber.Ctx) error {
	viewer := models.Anonymous
	if tokenString := tokenFromRequest(c); tokenString != "" && cfg != nil {
		if v, err := ParseViewerToken(cfg.JWTSecret, tokenString); err == nil {
			viewer = v
			c.Locals("userID", v.UserID)
		} else {
			Logger.DebugContext(c.UserContext(), "ignoring session token", "error", err.Error())
		}
	}
	c.Locals(viewerLocal, viewer)
	return c.Next()
}

// ViewerFrom returns the viewer stored by IdentifyViewer, or Anonymous.
func ViewerFrom(c *fiber.Ctx) models.Viewer {
	if v, ok := c.Locals(viewerLocal).(models.Viewer); ok {
		return v
	}
	return models.Anonymous
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	if !ViewerFrom(c).Authenticated {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	return c.Next()
}

// StaffRequired restricts a route group to staff accounts.
func StaffRequired(c *fiber.Ctx) error {
	viewer := ViewerFrom(c)
	if !viewer.Authenticated {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	if !viewer.IsStaff {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Staff access required"))
	}
	return c.Next()
}
