package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/config"
	"golang.org/x/time/rate"
)

// TestEnhancedRateLimiting tests the improved rate limiting with multiple client identifiers
func TestEnhancedRateLimiting(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(10), 5)

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}

	rateLimitedHandler := RateLimitMiddleware(limiter, handler)

	// Same IP but different user agents should have different rate limits
	req1 := httptest.NewRequest("GET", "/", nil)
	req1.Header.Set("User-Agent", "Mozilla/5.0")
	req1.RemoteAddr = "192.168.1.1:12345"

	req2 := httptest.NewRequest("GET", "/", nil)
	req2.Header.Set("User-Agent", "Chrome/91.0")
	req2.RemoteAddr = "192.168.1.1:12345"

	w1 := httptest.NewRecorder()
	w2 := httptest.NewRecorder()

	rateLimitedHandler(w1, req1)
	rateLimitedHandler(w2, req2)

	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Errorf("Both requests should be allowed initially")
	}

	// Requests with same identifiers share the bucket; one token was spent above.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0")
		req.RemoteAddr = "192.168.1.1:12345"

		w := httptest.NewRecorder()
		rateLimitedHandler(w, req)

		if i < 4 && w.Code != http.StatusOK {
			t.Errorf("Request %d should be allowed", i)
		}
		if i >= 5 && w.Code != http.StatusTooManyRequests {
			t.Errorf("Request %d should be rate limited", i)
		}
	}
}

// TestCORSConfiguration tests the CORS middleware against environment-driven config
func TestCORSConfiguration(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DEV_CORS_ORIGINS", "https://localhost:3000,https://127.0.0.1:3000")
	t.Setenv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")
	t.Setenv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization")

	appConfig := config.NewConfig()

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}

	corsHandler := CORSMiddleware(http.HandlerFunc(handler), appConfig)

	testCases := []struct {
		name           string
		origin         string
		shouldAllow    bool
		expectedOrigin string
	}{
		{"Allowed origin", "https://localhost:3000", true, "https://localhost:3000"},
		{"Disallowed origin", "https://evil.com", false, ""},
		{"No origin header", "", false, ""},
		{"Allowed origin with different case", "https://LOCALHOST:3000", false, ""}, // Case sensitive
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}

			w := httptest.NewRecorder()
			corsHandler.ServeHTTP(w, req)

			originHeader := w.Header().Get("Access-Control-Allow-Origin")
			if tc.shouldAllow && originHeader != tc.expectedOrigin {
				t.Errorf("Expected origin header %s, got %s", tc.expectedOrigin, originHeader)
			}
			if !tc.shouldAllow && originHeader != "" {
				t.Errorf("Expected no origin header, got %s", originHeader)
			}

			methodsHeader := w.Header().Get("Access-Control-Allow-Methods")
			if methodsHeader != "GET, POST, OPTIONS" {
				t.Errorf("Expected methods header 'GET, POST, OPTIONS', got '%s'", methodsHeader)
			}
			headersHeader := w.Header().Get("Access-Control-Allow-Headers")
			if headersHeader != "Content-Type, Authorization" {
				t.Errorf("Expected headers header 'Content-Type, Authorization', got '%s'", headersHeader)
			}
		})
	}

	t.Run("Preflight request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "https://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")

		w := httptest.NewRecorder()
		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200 for OPTIONS, got %d", w.Code)
		}
	})
}

// TestClientIdentifier tests the enhanced client identification
func TestClientIdentifier(t *testing.T) {
	testCases := []struct {
		name       string
		setupReq   func(*http.Request)
		expectSame bool
	}{
		{
			name: "Same IP and user agent",
			setupReq: func(req *http.Request) {
				req.RemoteAddr = "192.168.1.1:12345"
				req.Header.Set("User-Agent", "Mozilla/5.0")
			},
			expectSame: true,
		},
		{
			name: "Different IP, same user agent",
			setupReq: func(req *http.Request) {
				req.RemoteAddr = "192.168.1.2:12345"
				req.Header.Set("User-Agent", "Mozilla/5.0")
			},
			expectSame: false,
		},
		{
			name: "Same IP, different user agent",
			setupReq: func(req *http.Request) {
				req.RemoteAddr = "192.168.1.1:12345"
				req.Header.Set("User-Agent", "Chrome/91.0")
			},
			expectSame: false,
		},
		{
			name: "With session cookie",
			setupReq: func(req *http.Request) {
				req.RemoteAddr = "192.168.1.1:12345"
				req.Header.Set("User-Agent", "Chrome/91.0")
				req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-123"})
			},
			expectSame: false,
		},
	}

	var previousID string

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			tc.setupReq(req)

			clientID := getClientIdentifier(req)

			if i > 0 {
				if tc.expectSame && clientID != previousID {
					t.Errorf("Expected same client ID, got different: %s vs %s", previousID, clientID)
				}
				if !tc.expectSame && clientID == previousID {
					t.Errorf("Expected different client ID, got same: %s", clientID)
				}
			}

			previousID = clientID

			if len(clientID) != 16 {
				t.Errorf("Expected client ID length 16, got %d", len(clientID))
			}
		})
	}
}

// TestClientIdentifierShortHeaders covers one-letter and blank headers
func TestClientIdentifierShortHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("Accept-Language", "e")
	req.Header.Set("User-Agent", "   ")

	if id := getClientIdentifier(req); len(id) != 16 {
		t.Errorf("Expected client ID length 16, got %d", len(id))
	}
}

// TestRateLimiterCleanup tests the rate limiter cleanup functionality
func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(10), 5)

	limiter.Allow("client1")
	limiter.Allow("client2")
	limiter.Allow("client3")

	if len(limiter.clients) != 3 {
		t.Errorf("Expected 3 clients, got %d", len(limiter.clients))
	}

	limiter.mutex.Lock()
	for id, client := range limiter.clients {
		if id != "client3" {
			client.lastSeen = time.Now().Add(-10 * time.Minute)
		}
	}
	limiter.mutex.Unlock()

	limiter.Cleanup()

	if len(limiter.clients) != 1 {
		t.Errorf("Expected 1 client after cleanup, got %d", len(limiter.clients))
	}
	if _, ok := limiter.clients["client3"]; !ok {
		t.Errorf("Expected the recently seen client to survive cleanup")
	}
}
