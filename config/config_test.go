package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "TOKEN_TTL", "BCRYPT_COST", "DEFAULT_SUBSCRIPTION", "AVATAR_DRIVER", "PUBLIC_BASE_URL"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, "postgres", c.StoreDriver)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, "starter", c.DefaultSubscription)
	assert.Equal(t, "local", c.AvatarDriver)
	assert.Equal(t, "/avatars", c.AvatarPublicPath)
	assert.Equal(t, "http://localhost:8080", c.PublicBaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("PUBLIC_BASE_URL", "https://contacts.example.com/")
	t.Setenv("MAIL_SEND_ENABLED", "false")

	c := Load()
	assert.Equal(t, "redis", c.StoreDriver)
	assert.Equal(t, 15*time.Minute, c.TokenTTL)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, "https://contacts.example.com", c.PublicBaseURL)
	assert.False(t, c.MailSendEnabled)
}

func TestPostgresDSNAndOrigins(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable", CORSAllowedOrigins: " http://a.com, ,http://b.com "}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.PostgresDSN())
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, c.CORSOrigins())
}

func TestValidate_RefusesDevSecretOutsideDevelopment(t *testing.T) {
	assert.NoError(t, (&Config{Env: "development", JWTSecret: DevJWTSecret}).Validate())
	assert.Error(t, (&Config{Env: "production", JWTSecret: DevJWTSecret}).Validate())
	assert.Error(t, (&Config{Env: "staging", JWTSecret: ""}).Validate())
	assert.NoError(t, (&Config{Env: "production", JWTSecret: "a-real-secret"}).Validate())

	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	assert.Error(t, Load().Validate())
}
