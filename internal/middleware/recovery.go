package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、500レスポンスを返すミドルウェアを生成する。
// /api/配下ではプロキシ固定のエラーボディ、それ以外では統一エラーフォーマットを返す。
// loggerがnilの場合はslog.Defaultを使用する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if visitorID := annotatedVisitorID(r.Context()); visitorID != "" {
					attrs = append(attrs, slog.String("visitor_id", visitorID))
				}
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				logger.Error("リクエスト処理中のpanicから復帰しました", attrs...)

				if isProxyPath(r) {
					WriteProxyError(w)
					return
				}
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
