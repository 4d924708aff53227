package listing

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/hitoshi/sailings/internal/model"
)

// SortField は並び替えのキーを表す。
type SortField string

const (
	// SortByPrice は価格で並び替える。
	SortByPrice SortField = "price"
	// SortByDepartureDate は出発日で並び替える。
	SortByDepartureDate SortField = "departureDate"
	// SortByDuration は泊数で並び替える。
	SortByDuration SortField = "duration"
)

// SortOrder は並び替えの方向を表す。
type SortOrder string

const (
	// OrderAsc は昇順。
	OrderAsc SortOrder = "asc"
	// OrderDesc は降順。
	OrderDesc SortOrder = "desc"
)

// Sort は並び替えのキーと方向の組。
type Sort struct {
	Field SortField
	Order SortOrder
}

// DefaultSort は初期状態およびリセット後の並び替え（価格の昇順）。
var DefaultSort = Sort{Field: SortByPrice, Order: OrderAsc}

// Token は "field-order" 形式のトークンを返す。
func (s Sort) Token() string {
	return string(s.Field) + "-" + string(s.Order)
}

// Valid はキーと方向がいずれも既知の値かどうかを返す。
func (s Sort) Valid() bool {
	switch s.Field {
	case SortByPrice, SortByDepartureDate, SortByDuration:
	default:
		return false
	}
	return s.Order == OrderAsc || s.Order == OrderDesc
}

// ParseSortToken は "price-desc" のようなトークンをSortに分解する。
func ParseSortToken(token string) (Sort, error) {
	field, order, ok := strings.Cut(token, "-")
	if !ok {
		return Sort{}, fmt.Errorf("sort token %q must be field-order", token)
	}

	s := Sort{Field: SortField(field), Order: SortOrder(order)}
	if !s.Valid() {
		return Sort{}, fmt.Errorf("unknown sort token %q", token)
	}
	return s, nil
}

// compareBy はキーに応じた昇順の比較関数を返す。
func compareBy(field SortField) func(a, b model.Sailing) int {
	switch field {
	case SortByDepartureDate:
		return func(a, b model.Sailing) int {
			return a.DepartureDate.Compare(b.DepartureDate.Time)
		}
	case SortByDuration:
		return func(a, b model.Sailing) int {
			return cmp.Compare(a.Duration, b.Duration)
		}
	default:
		return func(a, b model.Sailing) int {
			return cmp.Compare(a.Price, b.Price)
		}
	}
}

// SortSailings はlistのコピーを安定ソートして返す。listは変更しない。
// 降順は比較結果を反転させるだけなので、同値の要素は昇順・降順とも元の相対順序を保つ。
func SortSailings(list []model.Sailing, s Sort) []model.Sailing {
	sorted := slices.Clone(list)
	compare := compareBy(s.Field)
	if s.Order == OrderDesc {
		asc := compare
		compare = func(a, b model.Sailing) int { return -asc(a, b) }
	}
	slices.SortStableFunc(sorted, compare)
	return sorted
}
