package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/sailings/internal/catalog"
	"github.com/hitoshi/sailings/internal/listing"
	"github.com/hitoshi/sailings/internal/metrics"
	"github.com/hitoshi/sailings/internal/middleware"
	"github.com/hitoshi/sailings/internal/model"
	"github.com/hitoshi/sailings/internal/render"
)

// defaultLoadTimeout は航海データ取得1回あたりのタイムアウトのデフォルト値。
const defaultLoadTimeout = 15 * time.Second

// LoadRecorder は一覧の読み込み結果を記録するインターフェース。
type LoadRecorder interface {
	RecordListingLoad(result string)
}

// ListingHandlerConfig はListingHandlerの設定。
type ListingHandlerConfig struct {
	Store       *listing.Store
	Source      listing.Source
	Renderer    *render.Renderer
	Recorder    LoadRecorder
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

// ListingHandler は航海一覧ページと並び替え・ページ送り・リセットの操作を処理する。
// 各操作は訪問者ごとのビューモデルに適用し、303で一覧ページへリダイレクトする。
type ListingHandler struct {
	store       *listing.Store
	source      listing.Source
	renderer    *render.Renderer
	recorder    LoadRecorder
	loadTimeout time.Duration
	logger      *slog.Logger

	loads sync.WaitGroup
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(cfg ListingHandlerConfig) *ListingHandler {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop{}
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ListingHandler{
		store:       cfg.Store,
		source:      cfg.Source,
		renderer:    cfg.Renderer,
		recorder:    cfg.Recorder,
		loadTimeout: cfg.LoadTimeout,
		logger:      cfg.Logger,
	}
}

// Wait は実行中の読み込みがすべて終わるまで待つ。シャットダウン時とテストで使用する。
func (h *ListingHandler) Wait() {
	h.loads.Wait()
}

// ShowListing は現在の状態に応じて一覧ページを描画する。
// Cookieを発行したばかりの訪問者には取得を始めずに読み込み中を返し、
// Cookieが送り返された次の表示で1度だけ航海データの取得を開始する。
// 取得を開始したリクエストには常に読み込み中を返す。
// 取得失敗を表示したビューモデルは破棄し、次の表示で取得をやり直す。
// GET /
func (h *ListingHandler) ShowListing(w http.ResponseWriter, r *http.Request) {
	if middleware.IsNewVisitor(r.Context()) {
		h.render(w, r, loadingView())
		return
	}

	visitorID, m, ok := h.visitorModel(w, r)
	if !ok {
		return
	}

	if m.BeginLoad() {
		h.startLoad(visitorID, m)
		h.render(w, r, loadingView())
		return
	}

	v := m.View()
	if v.Status == listing.StatusFailed {
		h.store.Discard(visitorID, m)
	}

	h.render(w, r, v)
}

// loadingView は取得前の初期状態のビューを返す。
func loadingView() listing.View {
	return listing.NewModel().View()
}

// render は一覧ページを書き込む。
func (h *ListingHandler) render(w http.ResponseWriter, r *http.Request, v listing.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := h.renderer.Render(w, v, middleware.CSRFTokenFromContext(r.Context())); err != nil {
		visitorID, _ := middleware.VisitorIDFromContext(r.Context())
		h.logger.Error("一覧ページの描画に失敗しました",
			slog.String("visitor_id", visitorID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}

// ChangeSort は並び替えを変更する。現在のページ番号は維持する。
// POST /sort
func (h *ListingHandler) ChangeSort(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.visitorModel(w, r)
	if !ok {
		return
	}

	if err := m.ChangeSortToken(r.PostFormValue("sort")); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			return
		}
		middleware.WriteInternalServerError(w)
		return
	}

	redirectToListing(w, r)
}

// ChangePage はページを移動する。範囲外のページ指定は無視して一覧に戻る。
// POST /page
func (h *ListingHandler) ChangePage(w http.ResponseWriter, r *http.Request) {
	visitorID, m, ok := h.visitorModel(w, r)
	if !ok {
		return
	}

	raw := r.PostFormValue("page")
	target, err := strconv.Atoi(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError(raw))
		return
	}

	if window, ok := m.NavigatePage(target); !ok {
		h.logger.Debug("範囲外のページ指定を無視しました",
			slog.String("visitor_id", visitorID),
			slog.Int("page", target),
			slog.Int("total_pages", window.TotalPages),
		)
	}

	redirectToListing(w, r)
}

// ResetFilters は並び替えとページを初期状態に戻す。再取得は行わない。
// POST /reset
func (h *ListingHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.visitorModel(w, r)
	if !ok {
		return
	}

	m.Reset()
	redirectToListing(w, r)
}

// visitorModel はリクエストの訪問者に対応するビューモデルを返す。
// 訪問者IDが取得できない場合はエラーレスポンスを書き込み、okにfalseを返す。
func (h *ListingHandler) visitorModel(w http.ResponseWriter, r *http.Request) (string, *listing.Model, bool) {
	visitorID, err := middleware.VisitorIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewVisitorMissingError())
		return "", nil, false
	}

	m, _ := h.store.Get(visitorID)
	return visitorID, m, true
}

// startLoad はバックグラウンドで航海データを取得する。
// リクエストの終了後も続行するため、リクエストのコンテキストは使用しない。
func (h *ListingHandler) startLoad(visitorID string, m *listing.Model) {
	h.loads.Add(1)
	go func() {
		defer h.loads.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.loadTimeout)
		defer cancel()

		err := m.Load(ctx, h.source)
		switch {
		case err == nil:
			h.recorder.RecordListingLoad(metrics.LoadResultSuccess)
			h.logger.Info("航海一覧を読み込みました",
				slog.String("visitor_id", visitorID),
				slog.Int("count", m.TotalItems()),
			)
		case errors.Is(err, listing.ErrAlreadyLoaded):
			return
		case errors.Is(err, catalog.ErrMalformedPayload):
			h.recorder.RecordListingLoad(metrics.LoadResultMalformed)
			h.logger.Warn("航海データの形式が不正なため一覧の読み込みに失敗しました",
				slog.String("visitor_id", visitorID),
				slog.String("error", err.Error()),
			)
		default:
			h.recorder.RecordListingLoad(metrics.LoadResultFailure)
			h.logger.Error("航海一覧の読み込みに失敗しました",
				slog.String("visitor_id", visitorID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func redirectToListing(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
