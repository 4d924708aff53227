package middleware

import (
	"net/http"
	"strconv"
)

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	AllowedOrigin    string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
	MaxAge           int // プリフライト結果のキャッシュ秒数。0の場合はヘッダーを付与しない
}

// ProxyCORSConfig は航海データプロキシ用のCORS設定を返す。
// プロキシは任意のオリジンから読み取れるため、credentialsは許可しない。
func ProxyCORSConfig(allowedOrigin string) CORSConfig {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return CORSConfig{
		AllowedOrigin:  allowedOrigin,
		AllowedMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowedHeaders: "Content-Type, Authorization",
	}
}

// NewCORSMiddleware は設定に従ってCORSヘッダーを付与するミドルウェアを返す。
// ヘッダーはOriginの有無にかかわらず常に付与する。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(config CORSConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", config.AllowedOrigin)
			h.Set("Access-Control-Allow-Methods", config.AllowedMethods)
			h.Set("Access-Control-Allow-Headers", config.AllowedHeaders)
			if config.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			}
			if config.AllowedOrigin != "*" {
				h.Add("Vary", "Origin")
			}

			// OPTIONSプリフライトリクエストには204で応答
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
