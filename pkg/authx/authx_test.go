package authx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/authx"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

func newApp(svc *authx.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *errx.Error
			if errors.As(err, &e) {
				return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	app.Use(svc.Authenticate())
	app.Get("/read", func(c *fiber.Ctx) error {
		claims, _ := authx.FromContext(c)
		return c.SendString(claims.Subject)
	})
	app.Get("/admin", authx.RequireScope(authx.ScopeAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestAuthenticate(t *testing.T) {
	svc := authx.NewService("secret", "hybridparse", time.Minute)
	app := newApp(svc)

	token, err := svc.Generate("svc-a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := do(t, app, "/read", token); got != http.StatusOK {
		t.Fatalf("valid token status = %d", got)
	}
	if got := do(t, app, "/read", ""); got != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", got)
	}

	other, _ := authx.NewService("other", "hybridparse", time.Minute).Generate("svc-a")
	if got := do(t, app, "/read", other); got != http.StatusUnauthorized {
		t.Fatalf("foreign signature status = %d", got)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := authx.NewService("secret", "", -time.Minute)
	token, err := svc.Generate("svc-a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := svc.Validate(token); !errx.HasCode(err, authx.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRequireScope(t *testing.T) {
	svc := authx.NewService("secret", "", time.Minute)
	app := newApp(svc)

	plain, _ := svc.Generate("svc-a")
	if got := do(t, app, "/admin", plain); got != http.StatusForbidden {
		t.Fatalf("no scope status = %d", got)
	}
	admin, _ := svc.Generate("ops", authx.ScopeAdmin)
	if got := do(t, app, "/admin", admin); got != http.StatusNoContent {
		t.Fatalf("admin status = %d", got)
	}
}
