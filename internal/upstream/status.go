package upstream

// Result はHTTPステータスコードに基づく上流呼び出し結果の分類。
type Result int

const (
	// ResultOK は取得成功（2xx）。
	ResultOK Result = iota
	// ResultRejected はリクエストが拒否されたステータス（4xx、429を除く）。
	ResultRejected
	// ResultUnavailable は一時的に利用できないステータス（429/5xx）。
	ResultUnavailable
	// ResultUnknown は上記以外のステータスコード（1xx/3xx）。
	ResultUnknown
)

// String は分類名を返す。
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultRejected:
		return "rejected"
	case ResultUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ClassifyHTTPStatus はHTTPステータスコードを上流呼び出し結果に分類する。
func ClassifyHTTPStatus(statusCode int) Result {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ResultOK
	case statusCode == 429:
		return ResultUnavailable
	case statusCode >= 500:
		return ResultUnavailable
	case statusCode >= 400:
		return ResultRejected
	default:
		return ResultUnknown
	}
}
