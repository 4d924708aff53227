package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// proxyTransport は一覧ページの取得をプロセス内のプロキシハンドラーで処理するRoundTripper。
// 外部向けのCORSとレート制限を経由しないため、訪問者の読み込みが
// 同じループバックIPのレート制限枠を奪い合うことはない。
type proxyTransport struct {
	proxy *SailingsHandler
}

// NewProxyTransport はupstreamを呼ぶプロキシハンドラーを直接実行するRoundTripperを返す。
// catalog.Clientのhttp.ClientのTransportとして使用する。
func NewProxyTransport(upstream UpstreamFetcher, logger *slog.Logger) http.RoundTripper {
	return &proxyTransport{proxy: NewSailingsHandler(upstream, logger)}
}

// RoundTrip はリクエストをプロキシハンドラーで処理し、その結果をレスポンスとして返す。
// リクエストのコンテキストは上流の取得までそのまま引き継がれる。
func (t *proxyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	rw := newBufferedResponse()
	t.proxy.GetSailings(rw, req)

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", rw.status, http.StatusText(rw.status)),
		StatusCode:    rw.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        rw.header,
		Body:          io.NopCloser(bytes.NewReader(rw.body.Bytes())),
		ContentLength: int64(rw.body.Len()),
		Request:       req,
	}, nil
}

// bufferedResponse はハンドラーの出力をメモリに保持するhttp.ResponseWriter。
type bufferedResponse struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
