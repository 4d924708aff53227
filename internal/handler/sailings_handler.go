package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sailings/internal/middleware"
	"github.com/hitoshi/sailings/internal/upstream"
)

// UpstreamFetcher はプロキシが必要とする上流クライアントのインターフェース。
type UpstreamFetcher interface {
	// Fetch は上流APIを1回呼び出し、検証済みのJSONボディを返す。
	Fetch(ctx context.Context) ([]byte, error)
}

// SailingsHandler は航海データの同一オリジンプロキシ。
type SailingsHandler struct {
	upstream UpstreamFetcher
	logger   *slog.Logger
}

// NewSailingsHandler はSailingsHandlerを生成する。
func NewSailingsHandler(upstream UpstreamFetcher, logger *slog.Logger) *SailingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SailingsHandler{
		upstream: upstream,
		logger:   logger,
	}
}

// GetSailings は上流APIのレスポンスボディをそのまま返す。
// GET /api/sailings
func (h *SailingsHandler) GetSailings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	body, err := h.upstream.Fetch(r.Context())
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			attrs = append(attrs,
				slog.Int("upstream_status", statusErr.StatusCode),
				slog.String("upstream_result", upstream.ClassifyHTTPStatus(statusErr.StatusCode).String()),
			)
		}
		h.logger.Error("航海データのプロキシに失敗しました", attrs...)

		middleware.WriteProxyError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Preflight はプリフライトリクエストに応答する。CORSヘッダーはミドルウェアで付与される。
// OPTIONS /api/sailings
func (h *SailingsHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
