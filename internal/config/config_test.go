package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		Env:             "development",
		JWTSecret:       "secure-secret-at-least-32-chars-long",
		DBDriver:        "sqlite",
		DBPassword:      "secure-password",
		SiteID:          1,
		DefaultOwnerID:  1,
		DefaultTemplate: "flatpages/default.html",
		LoginURL:        "/accounts/login/",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero site", func(c *Config) { c.SiteID = 0 }, true},
		{"zero default owner", func(c *Config) { c.DefaultOwnerID = 0 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"relative login url", func(c *Config) { c.LoginURL = "accounts/login/" }, true},
		{"absolute login url", func(c *Config) { c.LoginURL = "https://sso.example.com/login" }, false},
		{"production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production with weak db password", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = "postgres"
			c.DBPassword = "password"
		}, true},
		{"production on sqlite", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SITE_ID", "3")
	t.Setenv("APPEND_SLASH", "false")
	t.Setenv("LOGIN_URL", "/login/")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, uint(3), c.SiteID)
	assert.False(t, c.AppendSlash)
	assert.Equal(t, "/login/", c.LoginURL)
	assert.Equal(t, "flatpages/default.html", c.DefaultTemplate)
	assert.Equal(t, "next", c.LoginRedirectField)
}

func TestConfig_IsInternalIP(t *testing.T) {
	c := &Config{InternalIPs: "127.0.0.1, 10.0.0.0/8"}

	assert.True(t, c.IsInternalIP("127.0.0.1"))
	assert.True(t, c.IsInternalIP("10.2.3.4"))
	assert.False(t, c.IsInternalIP("192.168.1.10"))
	assert.False(t, c.IsInternalIP("not-an-ip"))
}

func TestConfig_CacheTTL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "10m0s", c.CacheTTL().String())

	c.CacheTTLSeconds = 30
	assert.Equal(t, "30s", c.CacheTTL().String())
}
