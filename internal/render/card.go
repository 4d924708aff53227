package render

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/sailings/internal/model"
	"github.com/hitoshi/sailings/internal/security"
)

// PlaceholderImage は船の画像がない場合に表示する埋め込み画像のパス。
const PlaceholderImage = "/images/NoImage1.png"

// 表示はen-US固定。
var printer = message.NewPrinter(language.AmericanEnglish)

var urlSanitizer = security.NewContentSanitizer()

// CardView は航海カード1枚分の表示用データ。
type CardView struct {
	Name       string
	Region     string
	Nights     string // "7 nights"
	Rating     string
	Reviews    string // "1,234 reviews"
	ShipName   string
	ImageURL   string
	LineName   string
	LogoURL    string // 空の場合はクルーズ会社名をテキストで表示する
	DateBadge  string
	Departure  string
	Return     string
	Ports      []string
	PriceLabel string
}

// HasLogo はロゴ画像を表示するかどうかを返す。
func (c CardView) HasLogo() bool {
	return c.LogoURL != ""
}

// NewCardView は航海1件から表示用データを組み立てる。
// 画像が空または不正なURLの場合はプレースホルダー画像に置き換える。
func NewCardView(s model.Sailing) CardView {
	image := urlSanitizer.SanitizeURL(s.Ship.Image)
	if image == "" {
		image = PlaceholderImage
	}

	ports := make([]string, 0, len(s.Itinerary))
	for _, port := range s.Itinerary {
		ports = append(ports, PortLabel(port))
	}

	return CardView{
		Name:       s.Name,
		Region:     s.Region,
		Nights:     printer.Sprintf("%d nights", s.Duration),
		Rating:     strconv.FormatFloat(s.Ship.Rating, 'f', -1, 64),
		Reviews:    printer.Sprintf("%d reviews", s.Ship.Reviews),
		ShipName:   s.Ship.Name,
		ImageURL:   image,
		LineName:   s.Ship.Line.Name,
		LogoURL:    urlSanitizer.SanitizeURL(s.Ship.Line.Logo),
		DateBadge:  FormatDateRange(s.DepartureDate, s.ReturnDate),
		Departure:  FormatDate(s.DepartureDate),
		Return:     FormatDate(s.ReturnDate),
		Ports:      ports,
		PriceLabel: FormatPrice(s.Price),
	}
}

// FormatDate は日付を "Sep 14, 2025" 形式で返す。ゼロ値は空文字列。
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format("Jan 2, 2006")
}

// FormatDateRange はカードのバッジ用に出発日と帰着日をまとめて表示する。
//
//	同じ月:   "Sep 14-21, 2025"
//	同じ年:   "Sep 28 - Oct 5, 2025"
//	年を跨ぐ: "Dec 28, 2025 - Jan 4, 2026"
func FormatDateRange(departure, ret model.Date) string {
	if ret.IsZero() {
		return FormatDate(departure)
	}
	if departure.IsZero() {
		return FormatDate(ret)
	}

	dep, back := departure.UTC(), ret.UTC()
	switch {
	case dep.Year() != back.Year():
		return FormatDate(departure) + " - " + FormatDate(ret)
	case dep.Month() != back.Month():
		return dep.Format("Jan 2") + " - " + back.Format("Jan 2, 2006")
	case dep.Day() == back.Day():
		return FormatDate(departure)
	default:
		return dep.Format("Jan 2") + "-" + back.Format("2, 2006")
	}
}

// FormatPrice は価格を "$1,234" 形式で返す。端数がある場合は小数2桁まで表示する。
func FormatPrice(price float64) string {
	if price == float64(int64(price)) {
		return printer.Sprintf("$%d", int64(price))
	}
	return printer.Sprintf("$%.2f", price)
}

// PortLabel は寄港地の最初のカンマより前の部分を返す（"Miami, Florida" → "Miami"）。
func PortLabel(port string) string {
	name, _, _ := strings.Cut(port, ",")
	return strings.TrimSpace(name)
}
