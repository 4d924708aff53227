package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は上流から受け取った文字列の無害化機能のインターフェースを定義する。
// 航海データのデコード直後に使用される。
type ContentSanitizerService interface {
	// SanitizeText は文字列から全てのマークアップを除去したプレーンテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// HTMLエンティティは元の文字に戻すため、テンプレート側で二重にエスケープされることはない。
	SanitizeText(raw string) string

	// SanitizeURL は画像URLとして表示してよい場合にのみURLを返し、それ以外は空文字列を返す。
	// http/httpsの絶対URLとルート相対パスのみ許可する。
	SanitizeURL(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 全てのタグを除去するbluemondayのStrictPolicyを使用する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はマークアップを除去したプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// SanitizeURL は許可されたURLのみを返す。
func (s *contentSanitizer) SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// ルート相対パス。"//host" はスキーム相対URLなので対象外
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return raw
	default:
		return ""
	}
}
