package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	u "docbelt/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

func TestTokenQuotaEnforced(t *testing.T) {
	token := "belt-quota-token"
	limit := 2

	u.LoadTokensFromMap(map[string]int{token: limit})
	u.AppConfig.RateLimiter.Interval = time.Hour

	rateLimitStore = newFakeLimiterStore()
	tokenLimiterCache.Lock()
	tokenLimiterCache.handlers = nil
	tokenLimiterCache.Unlock()

	app := fiber.New()
	app.Use(keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			return u.ValidateToken(key), nil
		},
	}))
	app.Use(rateLimitMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	newReq := func() *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-API-Key", token)
		return req
	}

	for i := 0; i < limit; i++ {
		resp, err := app.Test(newReq(), -1)
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := app.Test(newReq(), -1)
	if err != nil {
		t.Fatalf("request over quota: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 once the token quota is spent, got %d", resp.StatusCode)
	}
}
