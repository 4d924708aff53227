package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/publicsuffix"

	"github.com/hitoshi/sailings/internal/catalog"
	"github.com/hitoshi/sailings/internal/listing"
	"github.com/hitoshi/sailings/internal/metrics"
	"github.com/hitoshi/sailings/internal/middleware"
	"github.com/hitoshi/sailings/internal/render"
	"github.com/hitoshi/sailings/internal/upstream"
)

// upstreamPayload はn件の航海を含む上流レスポンスを生成する。
func upstreamPayload(n int) string {
	records := make([]string, n)
	for i := range records {
		records[i] = fmt.Sprintf(`{
			"price": %d,
			"name": "Sailing %02d",
			"ship": {"name": "Ship %d", "rating": 4.5, "reviews": 1200, "image": "", "line": {"logo": "", "name": "Line"}},
			"itinerary": ["Miami, Florida", "Nassau, Bahamas"],
			"region": "Caribbean",
			"departureDate": "2025-09-%02d",
			"returnDate": "2025-09-%02d",
			"duration": 7
		}`, 100*(i+1), i+1, i+1, 1+i%20, 8+i%20)
	}
	return `{"results":[` + strings.Join(records, ",") + `]}`
}

type testServer struct {
	*httptest.Server
	client   *http.Client
	listing  *ListingHandler
	store    *listing.Store
	registry *prometheus.Registry
}

// newTestServer は上流のスタブと、そこを参照する完全なルーターを起動する。
// 一覧ページはプロセス内のプロキシを経由して航海データを取得する。
func newTestServer(t *testing.T, upstreamHandler http.HandlerFunc) *testServer {
	t.Helper()
	return newLimitedTestServer(t, upstreamHandler, 120, 120)
}

// newLimitedTestServer はプロキシと一覧ページのレート制限（req/min）を指定してnewTestServerと同じ構成を起動する。
func newLimitedTestServer(t *testing.T, upstreamHandler http.HandlerFunc, proxyRPM, pageRPM int) *testServer {
	t.Helper()

	upstreamSrv := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstreamSrv.Close)

	var logs bytes.Buffer
	logger := newTestLogger(&logs)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	httpClient := &http.Client{Timeout: 5 * time.Second}
	upstreamClient := upstream.NewClient(httpClient, upstreamSrv.URL, 1<<20, collector, logger)
	source := catalog.NewClient(
		&http.Client{Transport: NewProxyTransport(upstreamClient, logger), Timeout: 5 * time.Second},
		"http://sailings.internal", 1<<20, collector, nil, logger,
	)

	store := listing.NewStore(time.Hour, logger)
	t.Cleanup(store.Stop)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error: %v", err)
	}

	listingHandler := NewListingHandler(ListingHandlerConfig{
		Store:       store,
		Source:      source,
		Renderer:    renderer,
		Recorder:    collector,
		LoadTimeout: 5 * time.Second,
		Logger:      logger,
	})
	t.Cleanup(listingHandler.Wait)

	proxyLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(proxyRPM))
	t.Cleanup(proxyLimiter.Stop)
	pageLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(pageRPM))
	t.Cleanup(pageLimiter.Stop)

	router := NewRouter(&RouterDeps{
		Logger:          logger,
		RateLimiter:     proxyLimiter,
		PageRateLimiter: pageLimiter,
		Upstream:        upstreamClient,
		Listing:         listingHandler,
		Gatherer:        registry,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}

	return &testServer{
		Server:   srv,
		client:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
		listing:  listingHandler,
		store:    store,
		registry: registry,
	}
}

func (ts *testServer) getDoc(t *testing.T) *goquery.Document {
	t.Helper()
	resp, err := ts.client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

// loadListing はCookieの発行と取得の開始を経て、完了後のページを返す。
func (ts *testServer) loadListing(t *testing.T) *goquery.Document {
	t.Helper()
	ts.getDoc(t)
	ts.getDoc(t)
	ts.listing.Wait()
	return ts.getDoc(t)
}

// postForm はCSRFトークンを付けてフォームを送信し、リダイレクト後のページを返す。
func (ts *testServer) postForm(t *testing.T, doc *goquery.Document, path string, form url.Values) *goquery.Document {
	t.Helper()
	token, ok := doc.Find(`input[name="csrf_token"]`).First().Attr("value")
	if !ok || token == "" {
		t.Fatal("CSRF token not found in page")
	}
	form.Set("csrf_token", token)

	resp, err := ts.client.PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/" {
		t.Fatalf("POST %s: status = %d, final path = %s", path, resp.StatusCode, resp.Request.URL.Path)
	}
	next, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return next
}

func cardNames(doc *goquery.Document) []string {
	var names []string
	doc.Find("article.card .sailing-name").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Text())
	})
	return names
}

func TestRouter_BrowseSortPaginateReset(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamPayload(12)))
	})

	doc := ts.loadListing(t)
	if got := doc.Find(".trip-count").Text(); got != "12 trips found" {
		t.Fatalf("trip count = %q", got)
	}
	names := cardNames(doc)
	if len(names) != 10 || names[0] != "Sailing 01" || names[9] != "Sailing 10" {
		t.Errorf("page 1 = %v, want the 10 cheapest ascending", names)
	}
	if src, _ := doc.Find("img.ship-image").First().Attr("src"); src != render.PlaceholderImage {
		t.Errorf("ship image = %q, want placeholder", src)
	}

	doc = ts.postForm(t, doc, "/page", url.Values{"page": {"2"}})
	if names := cardNames(doc); len(names) != 2 || names[0] != "Sailing 11" {
		t.Errorf("page 2 = %v, want [Sailing 11 Sailing 12]", names)
	}

	doc = ts.postForm(t, doc, "/sort", url.Values{"sort": {"price-desc"}})
	if names := cardNames(doc); len(names) != 2 || names[0] != "Sailing 02" {
		t.Errorf("page 2 after price-desc = %v, want [Sailing 02 Sailing 01]", names)
	}

	doc = ts.postForm(t, doc, "/reset", url.Values{})
	if names := cardNames(doc); len(names) != 10 || names[0] != "Sailing 01" {
		t.Errorf("after reset = %v", names)
	}
	if val, _ := doc.Find("select[name=sort] option[selected]").Attr("value"); val != "price-asc" {
		t.Errorf("selected sort = %q, want price-asc", val)
	}
}

func TestRouter_UpstreamFailureShowsErrorPage(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	doc := ts.loadListing(t)
	if got := doc.Find(".error p").Text(); got != listing.ErrorMessage {
		t.Errorf("message = %q, want %q", got, listing.ErrorMessage)
	}

	resp, err := http.Get(ts.URL + "/api/sailings")
	if err != nil {
		t.Fatalf("GET /api/sailings: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(body)); got != `{"error":"Failed to fetch sailings data"}` {
		t.Errorf("body = %s", got)
	}
}

// TestRouter_ReloadRecoversAfterUpstreamFailure は上流が一時的に失敗しても、
// エラーページの後の再表示で一覧が表示されることを検証する。
func TestRouter_ReloadRecoversAfterUpstreamFailure(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(upstreamPayload(4)))
	})

	doc := ts.loadListing(t)
	if got := doc.Find(".error p").Text(); got != listing.ErrorMessage {
		t.Fatalf("message = %q, want %q", got, listing.ErrorMessage)
	}

	doc = ts.getDoc(t)
	if doc.Find(`meta[http-equiv="refresh"]`).Length() != 1 {
		t.Error("reload after failure should show the loading page")
	}
	ts.listing.Wait()

	doc = ts.getDoc(t)
	if got := doc.Find(".trip-count").Text(); got != "4 trips found" {
		t.Errorf("trip count = %q, want %q", got, "4 trips found")
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

// TestRouter_ListingLoadIgnoresProxyRateLimit は外部からのプロキシ呼び出しで
// レート制限枠を使い切っても、一覧ページの読み込みが成功することを検証する。
func TestRouter_ListingLoadIgnoresProxyRateLimit(t *testing.T) {
	ts := newLimitedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamPayload(3)))
	}, 1, 120)

	statuses := make([]int, 0, 2)
	for range 2 {
		resp, err := http.Get(ts.URL + "/api/sailings")
		if err != nil {
			t.Fatalf("GET /api/sailings: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[1] != http.StatusTooManyRequests {
		t.Fatalf("proxy statuses = %v, want the second to be 429", statuses)
	}

	doc := ts.loadListing(t)
	if got := doc.Find(".trip-count").Text(); got != "3 trips found" {
		t.Errorf("trip count = %q, want %q", got, "3 trips found")
	}
}

// TestRouter_CookielessVisitsDoNotFetch はCookieを送り返さないクライアントの表示では
// ビューモデルを作らず上流も呼ばないことを検証する。
func TestRouter_CookielessVisitsDoNotFetch(t *testing.T) {
	var hits atomic.Int32
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(upstreamPayload(3)))
	})

	for range 10 {
		resp, err := http.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET /: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	}
	ts.listing.Wait()

	if n := ts.store.Len(); n != 0 {
		t.Errorf("store.Len() = %d, want 0", n)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("upstream hits = %d, want 0", n)
	}
}

// TestRouter_PageRateLimit は一覧ページにもクライアントIPごとの制限がかかることを検証する。
func TestRouter_PageRateLimit(t *testing.T) {
	ts := newLimitedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamPayload(1)))
	}, 120, 2)

	var last int
	for range 3 {
		resp, err := http.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET /: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third GET / status = %d, want 429", last)
	}
}

func TestRouter_ProxyHeaders(t *testing.T) {
	payload := upstreamPayload(1)
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})

	resp, err := http.Get(ts.URL + "/api/sailings")
	if err != nil {
		t.Fatalf("GET /api/sailings: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != payload {
		t.Error("proxy body should be passed through unchanged")
	}

	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
		"Cache-Control":                "no-store",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
	}
	for header, value := range want {
		if got := resp.Header.Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if len(resp.Cookies()) != 0 {
		t.Error("proxy should not issue cookies")
	}
}

func TestRouter_ProxyPreflight(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach upstream")
	})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/sailings", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /api/sailings: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_PostWithoutCSRFIsForbidden(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamPayload(1)))
	})

	resp, err := http.PostForm(ts.URL+"/reset", url.Values{})
	if err != nil {
		t.Fatalf("POST /reset: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRouter_HealthMetricsAndAssets(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamPayload(3)))
	})
	ts.loadListing(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health map[string]string
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, health)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{
		"sailings_upstream_fetch_success_total 1",
		`sailings_listing_loads_total{result="success"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics should contain %q", name)
		}
	}

	resp, err = http.Get(ts.URL + render.PlaceholderImage)
	if err != nil {
		t.Fatalf("GET placeholder: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("placeholder status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got == "" {
		t.Error("security headers should apply to assets")
	}
}
