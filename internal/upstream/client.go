// Package upstream は航海データ提供元APIの呼び出しを提供する。
// プロキシエンドポイントが1リクエストにつき1回だけ使用し、リトライは行わない。
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/sailings/internal/metrics"
)

// DefaultEndpoint は航海データ提供元APIのデフォルトエンドポイント。
const DefaultEndpoint = "https://sandbox.cruisebound-qa.com/sailings"

var (
	// ErrBodyTooLarge はレスポンスボディがサイズ上限を超えた場合のエラー。
	ErrBodyTooLarge = errors.New("upstream response body exceeds size limit")
	// ErrInvalidJSON はレスポンスボディがJSONとして不正な場合のエラー。
	ErrInvalidJSON = errors.New("upstream response body is not valid JSON")
)

// StatusError は上流が2xx以外のステータスを返した場合のエラー。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Recorder は上流呼び出しのメトリクス記録のインターフェース。
type Recorder interface {
	RecordFetchSuccess()
	RecordFetchFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
}

// Client は航海データ提供元APIのクライアント。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    string
	maxBodySize int64
	metrics     Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewClient(httpClient *http.Client, endpoint string, maxBodySize int64, recorder Recorder, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    endpoint,
		maxBodySize: maxBodySize,
		metrics:     recorder,
	}
}

// Endpoint は呼び出し先のURLを返す。
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch は上流APIを1回だけ呼び出し、レスポンスボディをそのまま返す。
// 2xx以外のステータス、通信エラー、サイズ超過、JSONとして不正なボディはエラーとなる。
// レスポンスはキャッシュさせない。
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordFetchLatency(time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", "Sailings/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordFetchFailure("transport")
		c.logger.Error("上流APIの呼び出しに失敗しました",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("上流APIの呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case ResultOK:
	case ResultUnavailable:
		c.metrics.RecordFetchFailure("status")
		c.logger.Warn("上流APIが一時的に利用できません",
			slog.String("endpoint", c.endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	default:
		c.metrics.RecordFetchFailure("status")
		c.logger.Error("上流APIがエラーステータスを返しました",
			slog.String("endpoint", c.endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	// 上限+1バイトまで読み、超過を検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		c.metrics.RecordFetchFailure("body")
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		c.metrics.RecordFetchFailure("too_large")
		c.logger.Error("レスポンスボディがサイズ上限を超えました",
			slog.String("endpoint", c.endpoint),
			slog.Int64("max_body_size", c.maxBodySize),
		)
		return nil, ErrBodyTooLarge
	}

	if !json.Valid(body) {
		c.metrics.RecordFetchFailure("invalid_json")
		c.logger.Error("上流APIのレスポンスがJSONとして不正です",
			slog.String("endpoint", c.endpoint),
			slog.Int("body_size", len(body)),
		)
		return nil, ErrInvalidJSON
	}

	c.metrics.RecordFetchSuccess()
	c.logger.Info("上流APIから航海データを取得しました",
		slog.String("endpoint", c.endpoint),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("body_size", len(body)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return body, nil
}
