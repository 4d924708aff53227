// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// VisitorCookieName は訪問者IDを保持するCookieの名前。
const VisitorCookieName = "visitor_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// visitorIDContextKey はリクエストコンテキストに訪問者IDを格納するためのキー。
	visitorIDContextKey = contextKey("visitor_id")
	// csrfTokenContextKey はリクエストコンテキストにCSRFトークンを格納するためのキー。
	csrfTokenContextKey = contextKey("csrf_token")
	// newVisitorContextKey はこのリクエストで訪問者IDを発行したことを示すキー。
	newVisitorContextKey = contextKey("new_visitor")
)

// VisitorConfig は訪問者ミドルウェアの設定。
type VisitorConfig struct {
	MaxAge       int // Cookieの有効期間（秒）
	CookieSecure bool
}

// NewVisitorMiddleware はCookieから訪問者IDを読み取り、リクエストコンテキストに注入するミドルウェアを返す。
// Cookieが存在しないかUUIDとして不正な場合は新しいIDを発行してCookieに設定する。
// 認証は行わず、訪問者ごとの閲覧状態を区別するためだけに使用する。
func NewVisitorMiddleware(config VisitorConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			visitorID := ""
			if cookie, err := r.Cookie(VisitorCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					visitorID = id.String()
				}
			}

			if visitorID == "" {
				visitorID = uuid.NewString()
				ctx = ContextWithNewVisitor(ctx)
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			annotateVisitorID(ctx, visitorID)
			next.ServeHTTP(w, r.WithContext(ContextWithVisitorID(ctx, visitorID)))
		})
	}
}

// VisitorIDFromContext はリクエストコンテキストから訪問者IDを取得する。
// 訪問者ミドルウェアを通過したリクエストでのみ有効。
func VisitorIDFromContext(ctx context.Context) (string, error) {
	visitorID, ok := ctx.Value(visitorIDContextKey).(string)
	if !ok || visitorID == "" {
		return "", fmt.Errorf("visitor ID not found in context")
	}
	return visitorID, nil
}

// ContextWithVisitorID はコンテキストに訪問者IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDContextKey, visitorID)
}

// IsNewVisitor はこのリクエストで訪問者IDのCookieを新しく発行したかを返す。
// Cookieを送り返さないクライアントでは毎回trueになる。
func IsNewVisitor(ctx context.Context) bool {
	isNew, _ := ctx.Value(newVisitorContextKey).(bool)
	return isNew
}

// ContextWithNewVisitor はコンテキストに新規訪問者であることを記録する。
func ContextWithNewVisitor(ctx context.Context) context.Context {
	return context.WithValue(ctx, newVisitorContextKey, true)
}
