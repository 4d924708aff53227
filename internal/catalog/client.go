// Package catalog は同一オリジンのプロキシから航海リストを取得するクライアントを提供する。
// 閲覧モデルのデータ取得元として使用され、型のない境界で受け取ったペイロードを検証する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/sailings/internal/model"
	"github.com/hitoshi/sailings/internal/security"
)

// SailingsPath はプロキシエンドポイントのパス。
const SailingsPath = "/api/sailings"

// Recorder はペイロード不正の記録のインターフェース。
type Recorder interface {
	RecordPayloadInvalid()
}

// Client はプロキシエンドポイントから航海リストを取得する。
// listing.Source を実装する。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    string
	maxBodySize int64
	metrics     Recorder
	sanitizer   Sanitizer
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLにはプロキシを提供するサーバーのオリジン（例: http://localhost:8080）を渡す。
// sanitizerがnilの場合はsecurity.NewContentSanitizerを使用する。
func NewClient(httpClient *http.Client, baseURL string, maxBodySize int64, recorder Recorder, sanitizer Sanitizer, logger *slog.Logger) *Client {
	if sanitizer == nil {
		sanitizer = security.NewContentSanitizer()
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    strings.TrimRight(baseURL, "/") + SailingsPath,
		maxBodySize: maxBodySize,
		metrics:     recorder,
		sanitizer:   sanitizer,
	}
}

// Endpoint は取得先のURLを返す。
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchSailings はプロキシから航海リストを1回だけ取得する。
// 通信失敗と2xx以外のステータスは ErrFetchFailed、
// レスポンスの形式不正は ErrMalformedPayload としてラップして返す。リトライは行わない。
func (c *Client) FetchSailings(ctx context.Context) ([]model.Sailing, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: リクエスト作成に失敗: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("航海データの取得に失敗しました",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("航海データAPIがエラーステータスを返しました",
			slog.String("endpoint", c.endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if int64(len(body)) > c.maxBodySize {
		c.recordInvalid()
		c.logger.Warn("航海データのレスポンスがサイズ上限を超えました",
			slog.String("endpoint", c.endpoint),
			slog.Int64("max_body_size", c.maxBodySize),
		)
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedPayload, c.maxBodySize)
	}

	sailings, err := DecodeSailings(body, c.sanitizer)
	if err != nil {
		c.recordInvalid()
		attrs := []any{
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		}
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			attrs = append(attrs, slog.Int("index", vErr.Index), slog.String("field", vErr.Field))
		}
		c.logger.Warn("航海データのレスポンス形式が不正です", attrs...)
		return nil, err
	}

	c.logger.Info("航海データを取得しました",
		slog.String("endpoint", c.endpoint),
		slog.Int("count", len(sailings)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return sailings, nil
}

func (c *Client) recordInvalid() {
	if c.metrics != nil {
		c.metrics.RecordPayloadInvalid()
	}
}
