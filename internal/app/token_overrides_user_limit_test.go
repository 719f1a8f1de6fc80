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

// A token with a healthy quota must keep working after anonymous traffic
// from the same address has burned through the client limit.
func TestTokenQuotaBypassesClientLimit(t *testing.T) {
	clientLimit := 2
	interval := time.Hour

	token := "belt-bypass-token"
	u.LoadTokensFromMap(map[string]int{token: 100})
	u.AppConfig.RateLimiter.Interval = interval

	// Both limiters share one store, same as the real middleware chain.
	rateLimitStore = newFakeLimiterStore()
	tokenLimiterCache.Lock()
	tokenLimiterCache.handlers = nil
	tokenLimiterCache.Unlock()

	cfg := u.Config{}
	cfg.RateLimiter.EnableUserLimiter = true
	cfg.RateLimiter.UserLimit = clientLimit
	cfg.RateLimiter.Interval = interval

	app := fiber.New()
	app.Use(keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			return u.ValidateToken(key), nil
		},
		// Anonymous requests pass through to the client limiter.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
	}))
	app.Use(rateLimitMiddleware())
	app.Use(userRateLimitMiddleware(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	newReq := func(withToken bool) *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("User-Agent", "docbelt-client-test")
		req.RemoteAddr = "203.0.113.9:4242"
		if withToken {
			req.Header.Set("X-API-Key", token)
		}
		return req
	}

	for i := 0; i < clientLimit; i++ {
		resp, err := app.Test(newReq(false), -1)
		if err != nil {
			t.Fatalf("anonymous request %d: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("anonymous request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}
	resp, err := app.Test(newReq(false), -1)
	if err != nil {
		t.Fatalf("anonymous request over limit: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 for anonymous overflow, got %d", resp.StatusCode)
	}

	resp, err = app.Test(newReq(true), -1)
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("token request should not hit the client limit, got %d", resp.StatusCode)
	}
}
