// Package model はドメインモデルを定義する。
package model

// Sailing は予約可能なクルーズ航海1件を表す。
// 上流APIから供給され、ビューモデルからは不変として扱う。
type Sailing struct {
	Price         float64  `json:"price"`
	Name          string   `json:"name"`
	Ship          Ship     `json:"ship"`
	Itinerary     []string `json:"itinerary"` // 寄港順。空の場合もある
	Region        string   `json:"region"`
	DepartureDate Date     `json:"departureDate"`
	ReturnDate    Date     `json:"returnDate"`
	Duration      int      `json:"duration"` // 泊数
}

// Ship は航海に使用される船を表す。
type Ship struct {
	Name    string     `json:"name"`
	Rating  float64    `json:"rating"`
	Reviews int        `json:"reviews"`
	Image   string     `json:"image"` // URLまたは空文字列
	Line    CruiseLine `json:"line"`
}

// CruiseLine はクルーズ会社を表す。
type CruiseLine struct {
	Logo string `json:"logo"` // URLまたは空文字列
	Name string `json:"name"`
}
