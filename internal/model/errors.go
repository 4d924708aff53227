package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, source, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSort    = "INVALID_SORT"
	ErrCodeInvalidPage    = "INVALID_PAGE"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeVisitorMissing = "VISITOR_MISSING"
	ErrCodeSourceFailed   = "SOURCE_FAILED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewInvalidSortError は無効な並び替え指定のエラーを生成する。
func NewInvalidSortError(token string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("Unknown sort option: %s", token),
		Category: "validation",
		Action:   "Choose one of price, departureDate or duration with asc or desc.",
	}
}

// NewInvalidPageError は数値として解釈できないページ指定のエラーを生成する。
func NewInvalidPageError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("Invalid page number: %s", raw),
		Category: "validation",
		Action:   "Use the page buttons to navigate.",
	}
}

// NewInvalidRequestError はフォームの解析に失敗した場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request could not be parsed.",
		Category: "validation",
		Action:   "Reload the page and try again.",
	}
}

// NewVisitorMissingError は訪問者IDがコンテキストに存在しない場合のエラーを生成する。
func NewVisitorMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeVisitorMissing,
		Message:  "Visitor session not found.",
		Category: "system",
		Action:   "Enable cookies and reload the page.",
	}
}

// NewSourceFailedError は航海データの取得に失敗した場合のエラーを生成する。
// 原因はログのみに記録し、メッセージは固定の文言に統一する。
func NewSourceFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSourceFailed,
		Message:  "Error fetching sailings. Please try again later.",
		Category: "source",
		Action:   "Check that the server is running and try again.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait and try again.",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}
