package listing

import "github.com/hitoshi/sailings/internal/model"

// PageSize は1ページあたりの表示件数。
const PageSize = 10

// TotalPages はtotal件をpageSize件ずつに分けたときのページ数を返す。
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Paginate はソート済みリストからpage番目（1始まり）の区間を切り出す。
// 範囲外のページは空スライスになり、エラーにはしない。
func Paginate(sorted []model.Sailing, page, pageSize int) ([]model.Sailing, int) {
	totalPages := TotalPages(len(sorted), pageSize)
	// page > totalPages の判定を先に行い、巨大なページ番号での乗算オーバーフローを避ける
	if page < 1 || page > totalPages {
		return []model.Sailing{}, totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(sorted))

	return sorted[start:end], totalPages
}
