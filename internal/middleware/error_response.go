package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/sailings/internal/model"
)

// ProxyErrorMessage は航海データプロキシの失敗時に返す固定メッセージ。
// 上流のステータスやエラー内容はログにのみ記録する。
const ProxyErrorMessage = "Failed to fetch sailings data"

// ProxyErrorBody はプロキシ失敗時のレスポンスボディ。
type ProxyErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// プロキシのようにボディ形式が固定されたエンドポイントでは使用しない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteProxyError はプロキシ失敗時の500レスポンスを書き込む。
// 上流の失敗内容によらずボディは常に同じ。
func WriteProxyError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(ProxyErrorBody{Error: ProxyErrorMessage})
}
