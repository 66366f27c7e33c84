package auth

import (
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func newTestApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(string(p.Role))
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	c := qt.New(t)

	tm := NewTokenManager("secret", 10)
	app := newTestApp(tm)
	token, _, err := tm.GenerateToken(testActor)
	c.Assert(err, qt.IsNil)

	tests := []struct {
		about  string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", fiber.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", fiber.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + token, fiber.StatusOK},
		{"role mismatch", "/admin", "Bearer " + token, fiber.StatusForbidden},
	}

	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			req := httptest.NewRequest(fiber.MethodGet, test.path, nil)
			if test.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, test.header)
			}
			resp, err := app.Test(req)
			c.Assert(err, qt.IsNil)
			c.Assert(resp.StatusCode, qt.Equals, test.status)
		})
	}
}
