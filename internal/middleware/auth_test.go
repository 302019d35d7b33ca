package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"flatpages/internal/config"
	"flatpages/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, userID uint, staff bool, exp time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"staff": staff,
		"exp":   time.Now().Add(exp).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestIdentifyViewer(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app := fiber.New()
	app.Use(IdentifyViewer)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(ViewerFrom(c))
	})

	tests := []struct {
		name   string
		header string
		cookie string
		want   models.Viewer
	}{
		{name: "No Token", want: models.Anonymous},
		{
			name:   "Bearer Token",
			header: "Bearer " + signToken(t, 12, false, time.Hour),
			want:   models.Viewer{UserID: 12, Authenticated: true},
		},
		{
			name:   "Staff Cookie",
			cookie: signToken(t, 3, true, time.Hour),
			want:   models.Viewer{UserID: 3, Authenticated: true, IsStaff: true},
		},
		{
			name:   "Expired Token Is Anonymous",
			header: "Bearer " + signToken(t, 12, true, -time.Hour),
			want:   models.Anonymous,
		},
		{
			name:   "Malformed Header Is Anonymous",
			header: "Basic dXNlcjpwYXNz",
			want:   models.Anonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var got models.Viewer
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaffRequired(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app := fiber.New()
	app.Use(IdentifyViewer)
	app.Get("/admin", StaffRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"Anonymous", "", http.StatusUnauthorized},
		{"Regular User", signToken(t, 5, false, time.Hour), http.StatusForbidden},
		{"Staff", signToken(t, 5, true, time.Hour), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestParseViewerToken_RejectsWrongSecret(t *testing.T) {
	token := signToken(t, 9, false, time.Hour)

	_, err := ParseViewerToken("another-secret", token)
	assert.Error(t, err)

	v, err := ParseViewerToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), v.UserID)
}
