package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func authApp(token string) *fiber.App {
	app := fiber.New()
	app.Post("/admin", AdminAuth(token), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAdminAuthDisabledWithoutToken(t *testing.T) {
	app := authApp("")
	resp, err := app.Test(httptest.NewRequest("POST", "/admin", nil))
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200 with auth disabled, got %d", resp.StatusCode)
	}
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	app := authApp("secret")
	resp, err := app.Test(httptest.NewRequest("POST", "/admin", nil))
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestAdminAuthBearer(t *testing.T) {
	app := authApp("secret")

	req := httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200 with bearer token, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected 401 with wrong bearer token, got %d", resp.StatusCode)
	}
}

func TestAdminAuthHeaderToken(t *testing.T) {
	app := authApp("secret")

	req := httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("X-Admin-Token", "secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200 with header token, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("X-Admin-Token", "nope")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected 401 with wrong header token, got %d", resp.StatusCode)
	}
}
