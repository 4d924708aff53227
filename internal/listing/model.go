// Package listing は航海一覧のビューモデルを提供する。
// 取得済みの航海リストと現在の並び替え・ページ状態を保持し、
// 画面に表示する区間（visible slice）を決定的に導出する。
package listing

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/sailings/internal/model"
	"github.com/hitoshi/sailings/internal/pagination"
)

// ErrorMessage は取得失敗時にユーザーへ表示する固定メッセージ。
// 通信失敗とペイロード不正を区別せず、同じ文言を返す。
const ErrorMessage = "Error fetching sailings. Please try again later."

// ErrAlreadyLoaded はLoadが2回以上呼ばれた場合のエラー。
var ErrAlreadyLoaded = errors.New("listing already loaded")

// Status はビューモデルの状態を表す。
type Status int

const (
	// StatusLoading は取得待ち。
	StatusLoading Status = iota
	// StatusLoaded は取得完了。
	StatusLoaded
	// StatusFailed は取得失敗。再試行はしない。
	StatusFailed
)

// String はStatusの名前を返す。
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source は航海リストの取得元のインターフェース。
type Source interface {
	FetchSailings(ctx context.Context) ([]model.Sailing, error)
}

// View はレンダリングに必要なビューモデルのスナップショット。
type View struct {
	Status       Status
	Items        []model.Sailing // 現在ページの表示区間
	TotalItems   int
	TotalPages   int
	PageSize     int
	Sort         Sort
	Page         int
	ErrorMessage string
}

// Model は1訪問者分の一覧ビューモデル。
// 同一訪問者からの並行リクエストに備えてRWMutexで保護する。
type Model struct {
	mu      sync.RWMutex
	status  Status
	raw     []model.Sailing
	sort    Sort
	page    int
	err     error
	started bool
}

// NewModel はLoading状態・既定の並び替え・1ページ目で初期化したModelを返す。
func NewModel() *Model {
	return &Model{
		status: StatusLoading,
		sort:   DefaultSort,
		page:   1,
	}
}

// BeginLoad は取得を開始してよい場合に1度だけtrueを返す。
// 呼び出し側はtrueを受け取ったときのみLoadを実行する。
func (m *Model) BeginLoad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.status != StatusLoading {
		return false
	}
	m.started = true
	return true
}

// Load はsourceから航海リストを1回だけ取得し、状態をLoadedまたはFailedに遷移させる。
// 取得中はロックを保持しないため、その間もViewはLoading状態を返す。
// 返すエラーはログ用で、ユーザー向けの表示はErrorMessageに統一される。
func (m *Model) Load(ctx context.Context, source Source) error {
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()
	if status != StatusLoading {
		return ErrAlreadyLoaded
	}

	sailings, err := source.FetchSailings(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusLoading {
		return ErrAlreadyLoaded
	}
	m.started = true

	if err != nil {
		m.status = StatusFailed
		m.err = err
		return err
	}

	m.raw = sailings
	m.status = StatusLoaded
	return nil
}

// Status は現在の状態を返す。
func (m *Model) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Err は取得失敗時の元のエラーを返す。失敗していない場合はnil。
func (m *Model) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Sort は現在の並び替えを返す。
func (m *Model) Sort() Sort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort
}

// Page は現在のページ番号を返す。
func (m *Model) Page() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page
}

// TotalItems は取得済みの航海件数を返す。
func (m *Model) TotalItems() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.raw)
}

// View は現在の状態から表示区間とページ数を導出する。
// 元のリストはコピーしてから並び替えるため変更されない。
func (m *Model) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := View{
		Status:     m.status,
		TotalItems: len(m.raw),
		PageSize:   PageSize,
		Sort:       m.sort,
		Page:       m.page,
	}

	switch m.status {
	case StatusLoaded:
		sorted := SortSailings(m.raw, m.sort)
		v.Items, v.TotalPages = Paginate(sorted, m.page, PageSize)
	case StatusFailed:
		v.ErrorMessage = ErrorMessage
	}

	return v
}

// ChangeSort は並び替えを置き換える。現在のページ番号はリセットしない。
func (m *Model) ChangeSort(s Sort) error {
	if !s.Valid() {
		return model.NewInvalidSortError(s.Token())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sort = s
	return nil
}

// ChangeSortToken は "field-order" 形式のトークンで並び替えを置き換える。
// 不明なトークンの場合は状態を変更せずエラーを返す。
func (m *Model) ChangeSortToken(token string) error {
	s, err := ParseSortToken(token)
	if err != nil {
		return model.NewInvalidSortError(token)
	}
	return m.ChangeSort(s)
}

// ChangePage はページ番号をそのまま設定する。範囲の制限はページコントロール側の責務。
func (m *Model) ChangePage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page = page
}

// NavigatePage はページコントロールの範囲チェックを通った場合のみページを移動する。
// 件数と現在ページの参照と更新を同じロック内で行う。
// 戻り値のWindowは判定に使った移動前の表示範囲。
func (m *Model) NavigatePage(target int) (pagination.Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := pagination.NewWindow(len(m.raw), PageSize, m.page)
	page, ok := window.Navigate(target)
	if ok {
		m.page = page
	}
	return window, ok
}

// Reset は並び替えを価格の昇順、ページを1に一括で戻す。再取得は行わない。
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sort = DefaultSort
	m.page = 1
}
