package middleware

import (
	"net/http"
	"strings"
)

// listingContentSecurityPolicy は一覧ページ用のCSP。
// 航海画像とロゴは外部ホストから読み込むため、img-srcのみhttp/httpsを許可する。
const listingContentSecurityPolicy = "default-src 'self'; img-src 'self' https: http:; script-src 'self'; style-src 'self'; frame-ancestors 'none'; form-action 'self'"

// proxyContentSecurityPolicy は/api/配下のJSON応答用のCSP。文書として描画されることはないため何も許可しない。
const proxyContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// proxyPathPrefix は航海データプロキシのパス接頭辞。
const proxyPathPrefix = "/api/"

// isProxyPath はリクエストが航海データプロキシ宛てかを返す。
func isProxyPath(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, proxyPathPrefix)
}

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// CSPはプロキシと一覧ページ（静的アセットを含む）で切り替える。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if isProxyPath(r) {
				w.Header().Set("Content-Security-Policy", proxyContentSecurityPolicy)
			} else {
				w.Header().Set("Content-Security-Policy", listingContentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
