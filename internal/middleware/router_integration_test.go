package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// TestRouterIntegration_ProxyAndPageGroups はプロキシAPIとHTMLページで
// 異なるミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ProxyAndPageGroups(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, CleanupInterval: 0})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Use(NewSecurityHeadersMiddleware())

	// プロキシAPI：CORS + レート制限。訪問者CookieやCSRFは不要
	r.Group(func(r chi.Router) {
		r.Use(NewCORSMiddleware(ProxyCORSConfig("")))
		r.Use(rl.Middleware())
		r.Get("/api/sailings", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"results":[]}`))
		})
	})

	// HTMLページ：訪問者 + CSRF
	r.Group(func(r chi.Router) {
		r.Use(NewVisitorMiddleware(VisitorConfig{}))
		r.Use(NewCSRFMiddleware(CSRFConfig{}))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			id, _ := VisitorIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{
				"visitor_id": id,
				"csrf_token": CSRFTokenFromContext(r.Context()),
			})
		})
		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	})

	t.Run("GET_proxy_has_cors_and_no_cookies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sailings", nil)
		req.RemoteAddr = "192.0.2.10:1000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
		}
		if len(w.Result().Cookies()) != 0 {
			t.Errorf("proxy should not set cookies, got %d", len(w.Result().Cookies()))
		}
	})

	t.Run("OPTIONS_proxy_preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sailings", nil)
		req.RemoteAddr = "192.0.2.11:1000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
		}
	})

	t.Run("GET_proxy_rate_limited", func(t *testing.T) {
		var last int
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/api/sailings", nil)
			req.RemoteAddr = "192.0.2.12:1000"
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			last = w.Code
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("third request status = %d, want %d", last, http.StatusTooManyRequests)
		}
	})

	t.Run("GET_page_then_POST_reset", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["visitor_id"] == "" || body["csrf_token"] == "" {
			t.Fatalf("expected visitor_id and csrf_token, got %v", body)
		}

		form := url.Values{CSRFFormField: {body["csrf_token"]}}
		req := httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range w.Result().Cookies() {
			req.AddCookie(c)
		}
		w2 := httptest.NewRecorder()
		r.ServeHTTP(w2, req)

		if w2.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want %d", w2.Code, http.StatusSeeOther)
		}
		if got := w2.Header().Get("Location"); got != "/" {
			t.Errorf("Location = %q, want %q", got, "/")
		}
	})

	t.Run("POST_reset_without_csrf", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset", nil))

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}
