package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/sailings/internal/model"
)

var (
	// ErrFetchFailed はプロキシへのリクエストが失敗したか、2xx以外が返された場合のエラー。
	ErrFetchFailed = errors.New("failed to fetch sailings")
	// ErrMalformedPayload はレスポンスの形式が不正な場合のエラー。
	ErrMalformedPayload = errors.New("malformed sailings payload")
)

// ValidationError は個々の航海レコードの検証エラー。
// errors.Is(err, ErrMalformedPayload) で判定できる。
type ValidationError struct {
	Index  int    // results配列内の位置。配列自体が不正な場合は-1
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedPayload, e.Reason)
	}
	return fmt.Sprintf("%s: results[%d].%s: %s", ErrMalformedPayload, e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformedPayload
}

// Sanitizer は上流の文字列を無害化するインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
	SanitizeURL(raw string) string
}

// envelope は上流レスポンスの最上位構造。
type envelope struct {
	Results json.RawMessage `json:"results"`
}

// DecodeSailings はレスポンスボディを航海リストにデコードし、各レコードを検証する。
// resultsが存在しないか配列でない場合、またはいずれかのレコードが検証に失敗した場合は
// ErrMalformedPayload を返す。テキストはマークアップを除去し、画像URLは許可されたもののみ残す。
func DecodeSailings(body []byte, sanitizer Sanitizer) ([]model.Sailing, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	results := bytes.TrimSpace(env.Results)
	if len(results) == 0 || bytes.Equal(results, []byte("null")) {
		return nil, &ValidationError{Index: -1, Reason: "missing results"}
	}
	if results[0] != '[' {
		return nil, &ValidationError{Index: -1, Reason: "results is not an array"}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(results, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	sailings := make([]model.Sailing, 0, len(records))
	for i, raw := range records {
		var s model.Sailing
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ValidationError{Index: i, Field: "*", Reason: err.Error()}
		}

		sanitize(&s, sanitizer)

		if err := validate(s); err != nil {
			err.Index = i
			return nil, err
		}
		sailings = append(sailings, s)
	}

	return sailings, nil
}

// sanitize は表示用の文字列フィールドを無害化する。
func sanitize(s *model.Sailing, sanitizer Sanitizer) {
	s.Name = sanitizer.SanitizeText(s.Name)
	s.Region = sanitizer.SanitizeText(s.Region)
	s.Ship.Name = sanitizer.SanitizeText(s.Ship.Name)
	s.Ship.Image = sanitizer.SanitizeURL(s.Ship.Image)
	s.Ship.Line.Name = sanitizer.SanitizeText(s.Ship.Line.Name)
	s.Ship.Line.Logo = sanitizer.SanitizeURL(s.Ship.Line.Logo)

	itinerary := make([]string, 0, len(s.Itinerary))
	for _, port := range s.Itinerary {
		if port = sanitizer.SanitizeText(port); port != "" {
			itinerary = append(itinerary, port)
		}
	}
	s.Itinerary = itinerary
}

// validate はレコード単位の不変条件を検証する。durationは出発日・帰着日から再計算しない。
func validate(s model.Sailing) *ValidationError {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return &ValidationError{Field: "name", Reason: "missing name"}
	case s.Price < 0:
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("negative price %v", s.Price)}
	case s.Duration < 0:
		return &ValidationError{Field: "duration", Reason: fmt.Sprintf("negative duration %d", s.Duration)}
	case s.DepartureDate.IsZero():
		return &ValidationError{Field: "departureDate", Reason: "missing date"}
	case s.ReturnDate.IsZero():
		return &ValidationError{Field: "returnDate", Reason: "missing date"}
	case s.DepartureDate.After(s.ReturnDate.Time):
		return &ValidationError{
			Field:  "returnDate",
			Reason: fmt.Sprintf("return %s is before departure %s", s.ReturnDate, s.DepartureDate),
		}
	}
	return nil
}
