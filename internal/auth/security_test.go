package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(maxAttempts int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		MaxAttempts:     maxAttempts,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Hour, // Long interval to prevent cleanup during test
	})
}

func TestRateLimiter_AllowsInitialAttempts(t *testing.T) {
	rl := newTestLimiter(3)
	defer rl.Stop()

	// First 3 attempts should be allowed
	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("192.168.1.1", "reader@example.com")
		if !allowed {
			t.Errorf("Attempt %d should be allowed", i+1)
		}
		locked, _ := rl.RecordFailure("192.168.1.1", "reader@example.com")
		if locked != (i == 2) {
			t.Errorf("Attempt %d: locked = %v", i+1, locked)
		}
	}

	// 4th attempt should be blocked
	allowed, retryAfter := rl.Allow("192.168.1.1", "reader@example.com")
	if allowed {
		t.Error("4th attempt should be blocked")
	}
	if retryAfter == 0 {
		t.Error("retryAfter should be non-zero when blocked")
	}
}

func TestRateLimiter_SuccessResetsCounter(t *testing.T) {
	rl := newTestLimiter(3)
	defer rl.Stop()

	rl.RecordFailure("192.168.1.1", "reader@example.com")
	rl.RecordFailure("192.168.1.1", "reader@example.com")
	rl.RecordSuccess("192.168.1.1", "reader@example.com")

	allowed, _ := rl.Allow("192.168.1.1", "reader@example.com")
	if !allowed {
		t.Error("Should be allowed after successful login")
	}
}

func TestRateLimiter_DifferentUsersAreIndependent(t *testing.T) {
	rl := newTestLimiter(2)
	defer rl.Stop()

	rl.RecordFailure("192.168.1.1", "first@example.com")
	rl.RecordFailure("192.168.1.1", "first@example.com")

	if allowed, _ := rl.Allow("192.168.1.1", "first@example.com"); allowed {
		t.Error("first user should be blocked")
	}
	if allowed, _ := rl.Allow("192.168.1.1", "second@example.com"); !allowed {
		t.Error("second user should be allowed")
	}
	if allowed, _ := rl.Allow("10.0.0.1", "first@example.com"); !allowed {
		t.Error("another address should be allowed")
	}
}

func TestRateLimiter_LockoutExpires(t *testing.T) {
	rl := newTestLimiter(1)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.RecordFailure("192.168.1.1", "reader@example.com")
	if allowed, _ := rl.Allow("192.168.1.1", "reader@example.com"); allowed {
		t.Fatal("should be locked out")
	}

	now = now.Add(3 * time.Minute)
	if allowed, _ := rl.Allow("192.168.1.1", "reader@example.com"); !allowed {
		t.Error("lockout should have expired")
	}

	rl.cleanup()
	if rl.attempts.Size() != 0 {
		t.Errorf("cleanup left %d records", rl.attempts.Size())
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	headers := map[string]string{
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}

	for header, expected := range headers {
		if got := rr.Header().Get(header); got != expected {
			t.Errorf("Header %s = %q, want %q", header, got, expected)
		}
	}

	if pp := rr.Header().Get("Permissions-Policy"); pp == "" {
		t.Error("Permissions-Policy header should be set")
	}
}

// TestHSTSHeader tests HSTS header is only set for HTTPS.
func TestHSTSHeader(t *testing.T) {
	router := gin.New()
	router.Use(StrictTransportSecurityMiddleware(31536000))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if hsts := rr.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Error("HSTS should not be set for HTTP requests")
	}

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if hsts := rr.Header().Get("Strict-Transport-Security"); hsts != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", hsts)
	}
}

func TestEmailValidation(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"reader@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"no-at-sign.example.com", false},
		{"missing@tld", false},
		{"@example.com", false},
		{"spaces in@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := emailPattern.MatchString(tt.email); got != tt.valid {
				t.Errorf("emailPattern.MatchString(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}
