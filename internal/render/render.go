// Package render は航海一覧のHTMLページを描画する。
// テンプレートと静的アセット（CSS、JavaScript、プレースホルダー画像）はバイナリに埋め込む。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/hitoshi/sailings/internal/listing"
	"github.com/hitoshi/sailings/internal/pagination"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// RefreshSeconds はLoadingページが再読み込みするまでの秒数。
const RefreshSeconds = 1

// SortOption は並び替えセレクトボックスの選択肢。
type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

// sortOptions は選択肢の表示順。
var sortOptions = []struct {
	sort  listing.Sort
	label string
}{
	{listing.Sort{Field: listing.SortByPrice, Order: listing.OrderAsc}, "Price (Lowest first)"},
	{listing.Sort{Field: listing.SortByPrice, Order: listing.OrderDesc}, "Price (Highest first)"},
	{listing.Sort{Field: listing.SortByDepartureDate, Order: listing.OrderAsc}, "Departure Date (Earliest first)"},
	{listing.Sort{Field: listing.SortByDepartureDate, Order: listing.OrderDesc}, "Departure Date (Latest first)"},
	{listing.Sort{Field: listing.SortByDuration, Order: listing.OrderAsc}, "Duration (Shortest first)"},
	{listing.Sort{Field: listing.SortByDuration, Order: listing.OrderDesc}, "Duration (Longest first)"},
}

// SortOptions は現在の並び替えを選択済みにした選択肢一覧を返す。
func SortOptions(current listing.Sort) []SortOption {
	opts := make([]SortOption, 0, len(sortOptions))
	for _, o := range sortOptions {
		opts = append(opts, SortOption{
			Value:    o.sort.Token(),
			Label:    o.label,
			Selected: o.sort == current,
		})
	}
	return opts
}

// PageData はテンプレートに渡すデータ。
type PageData struct {
	CSRFToken      string
	RefreshSeconds int
	ErrorMessage   string
	TotalItems     int
	SortOptions    []SortOption
	Cards          []CardView
	Pager          *pagination.Window // 1ページに収まる場合はnil
}

// Renderer は状態ごとのページテンプレートを保持する。
type Renderer struct {
	pages map[listing.Status]*template.Template
}

// New はテンプレートを読み込んでRendererを生成する。
func New() (*Renderer, error) {
	files := map[listing.Status]string{
		listing.StatusLoading: "templates/loading.html",
		listing.StatusFailed:  "templates/error.html",
		listing.StatusLoaded:  "templates/listing.html",
	}

	pages := make(map[listing.Status]*template.Template, len(files))
	for status, file := range files {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		pages[status] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// NewPageData はビューモデルのスナップショットからテンプレート用データを組み立てる。
func NewPageData(v listing.View, csrfToken string) PageData {
	data := PageData{
		CSRFToken:      csrfToken,
		RefreshSeconds: RefreshSeconds,
		ErrorMessage:   v.ErrorMessage,
		TotalItems:     v.TotalItems,
	}
	if v.Status != listing.StatusLoaded {
		return data
	}

	data.SortOptions = SortOptions(v.Sort)
	data.Cards = make([]CardView, 0, len(v.Items))
	for _, s := range v.Items {
		data.Cards = append(data.Cards, NewCardView(s))
	}
	if v.TotalItems > v.PageSize {
		w := pagination.NewWindow(v.TotalItems, v.PageSize, v.Page)
		data.Pager = &w
	}
	return data
}

// Render はビューモデルの状態に応じたページをwに書き込む。
// 途中でテンプレートが失敗しても不完全なHTMLを書き込まないよう、バッファに描画してからコピーする。
func (r *Renderer) Render(w io.Writer, v listing.View, csrfToken string) error {
	tmpl, ok := r.pages[v.Status]
	if !ok {
		return fmt.Errorf("no template for status %s", v.Status)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", NewPageData(v, csrfToken)); err != nil {
		return fmt.Errorf("failed to render %s page: %w", v.Status, err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// Assets は埋め込み静的アセットを配信するハンドラーを返す。
// /css/, /js/, /images/ 配下のパスにマウントして使用する。
func Assets() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// staticは埋め込み済みなので到達しない
		panic(err)
	}
	return http.FileServerFS(sub)
}
