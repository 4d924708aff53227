package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateLayout はDateをJSONへ書き出す際のレイアウト。
const dateLayout = "2006-01-02"

// Date はタイムゾーンを持たない暦日を表す。
// 上流APIの日付文字列はすべてUTCとして解釈し、UTC深夜0時に切り詰めて保持する。
// 表示もUTCの値から行うため、タイムゾーン境界で日付が1日ずれることはない。
type Date struct {
	time.Time
}

// NewDate は年月日からDateを生成する。
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate は日付文字列をDateに変換する。
// ISO 8601（日付のみ・オフセット付き）に加え、"09/14/2025" や "Sep 14, 2025" のような
// 非ISO形式も受け付ける。時刻とオフセットを含む場合はUTCに変換してから日に切り詰める。
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("empty date string")
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}

	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// UnmarshalJSON はJSON文字列からDateを復元する。
// null と空文字列はゼロ値のまま残し、妥当性の判定は呼び出し側の検証に委ねる。
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", s)
	}

	s = s[1 : len(s)-1]
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON はDateを "2006-01-02" 形式のJSON文字列として書き出す。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// String はDateを "2006-01-02" 形式で返す。
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}
