// Package pagination はページコントロールの表示範囲を計算する。
// 現在ページを中心に最大5ページ分のボタンを並べ、範囲外への遷移を防ぐ。
package pagination

// maxButtons は同時に表示するページ番号ボタンの最大数。
const maxButtons = 5

// Window はページコントロールに表示する内容を表す。
type Window struct {
	Current      int
	TotalPages   int
	Pages        []int // 表示するページ番号（連続）
	ShowLast     bool  // 省略記号と最終ページボタンを表示するか
	PrevDisabled bool
	NextDisabled bool
}

// NewWindow は総件数・ページサイズ・現在ページから表示範囲を計算する。
// 範囲は現在ページを中心に [1, totalPages] に収まるよう調整される。
func NewWindow(totalItems, pageSize, currentPage int) Window {
	totalPages := 0
	if totalItems > 0 && pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	startPage := max(1, currentPage-2)
	endPage := min(totalPages, startPage+maxButtons-1)
	if endPage-startPage < maxButtons-1 {
		startPage = max(1, endPage-(maxButtons-1))
	}

	pages := make([]int, 0, maxButtons)
	for p := startPage; p <= endPage; p++ {
		pages = append(pages, p)
	}

	return Window{
		Current:      currentPage,
		TotalPages:   totalPages,
		Pages:        pages,
		ShowLast:     endPage < totalPages,
		PrevDisabled: currentPage == 1,
		NextDisabled: currentPage == totalPages,
	}
}

// Prev は前ページの番号を返す。
func (w Window) Prev() int { return w.Current - 1 }

// Next は次ページの番号を返す。
func (w Window) Next() int { return w.Current + 1 }

// Navigate は遷移先が有効な範囲 [1, TotalPages] にある場合のみ (target, true) を返す。
// 無効化されたボタンが押された場合でも、このチェックにより遷移は行われない。
func (w Window) Navigate(target int) (int, bool) {
	if target < 1 || target > w.TotalPages {
		return w.Current, false
	}
	return target, true
}
