package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	for _, key := range []string{"POSTGRES_DSN", "REDIS_ADDR", "AUTH_BCRYPT_COST", "HTTP_REQUEST_TIMEOUT_SECONDS", "BOOTSTRAP_ADMIN_EMAIL", "BOOTSTRAP_ADMIN_PASSWORD"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.App.Addr(), qt.Equals, "0.0.0.0:8080")
	c.Assert(cfg.App.RequestTimeout(), qt.Equals, 30*time.Second)
	c.Assert(cfg.Postgres.DSN, qt.Equals, "")
	c.Assert(cfg.Postgres.MigrationsDir, qt.Equals, "migrations")
	c.Assert(cfg.Redis.Addr, qt.Equals, "")
	c.Assert(cfg.Redis.EventsChannel, qt.Equals, "helpdesk.events")
	c.Assert(cfg.Auth.BcryptCost, qt.Equals, 12)
	c.Assert(cfg.Bootstrap.Enabled(), qt.IsFalse)
}

func TestLoadOverrides(t *testing.T) {
	c := qt.New(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_EVENTS_CHANNEL", "desk")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "secret")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.App.Port, qt.Equals, "9090")
	c.Assert(cfg.App.RequestTimeout(), qt.Equals, time.Duration(0))
	c.Assert(cfg.Redis.Addr, qt.Equals, "localhost:6379")
	c.Assert(cfg.Redis.EventsChannel, qt.Equals, "desk")
	c.Assert(cfg.Auth.BcryptCost, qt.Equals, 4)
	c.Assert(cfg.Auth.AccessTokenTTLMinutes, qt.Equals, 15)
	c.Assert(cfg.Bootstrap.Enabled(), qt.IsTrue)
}

func TestLoadRejectsBadValues(t *testing.T) {
	c := qt.New(t)

	c.Run("bcrypt cost out of range", func(c *qt.C) {
		c.Setenv("REDIS_DB", "0")
		c.Setenv("AUTH_BCRYPT_COST", "99")
		_, err := Load()
		c.Assert(err, qt.ErrorMatches, "invalid AUTH_BCRYPT_COST 99.*")
	})

	c.Run("redis db not a number", func(c *qt.C) {
		c.Setenv("AUTH_BCRYPT_COST", "4")
		c.Setenv("REDIS_DB", "zero")
		_, err := Load()
		c.Assert(err, qt.ErrorMatches, "invalid REDIS_DB.*")
	})
}
