package pagination

import (
	"slices"
	"testing"
)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name         string
		totalItems   int
		current      int
		wantTotal    int
		wantPages    []int
		wantShowLast bool
		wantPrevDis  bool
		wantNextDis  bool
	}{
		{"two pages first", 12, 1, 2, []int{1, 2}, false, true, false},
		{"two pages last", 12, 2, 2, []int{1, 2}, false, false, true},
		{"twenty pages first", 200, 1, 20, []int{1, 2, 3, 4, 5}, true, true, false},
		{"twenty pages second", 200, 2, 20, []int{1, 2, 3, 4, 5}, true, false, false},
		{"twenty pages middle", 200, 10, 20, []int{8, 9, 10, 11, 12}, true, false, false},
		{"twenty pages near end", 200, 19, 20, []int{16, 17, 18, 19, 20}, false, false, false},
		{"twenty pages last", 200, 20, 20, []int{16, 17, 18, 19, 20}, false, false, true},
		{"five pages middle", 50, 3, 5, []int{1, 2, 3, 4, 5}, false, false, false},
		{"six pages fourth", 60, 4, 6, []int{2, 3, 4, 5, 6}, false, false, false},
		{"single page", 7, 1, 1, []int{1}, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.totalItems, 10, tt.current)

			if w.TotalPages != tt.wantTotal {
				t.Errorf("TotalPages = %d, want %d", w.TotalPages, tt.wantTotal)
			}
			if !slices.Equal(w.Pages, tt.wantPages) {
				t.Errorf("Pages = %v, want %v", w.Pages, tt.wantPages)
			}
			if w.ShowLast != tt.wantShowLast {
				t.Errorf("ShowLast = %v, want %v", w.ShowLast, tt.wantShowLast)
			}
			if w.PrevDisabled != tt.wantPrevDis {
				t.Errorf("PrevDisabled = %v, want %v", w.PrevDisabled, tt.wantPrevDis)
			}
			if w.NextDisabled != tt.wantNextDis {
				t.Errorf("NextDisabled = %v, want %v", w.NextDisabled, tt.wantNextDis)
			}
		})
	}
}

// TestNewWindow_AtMostFiveConsecutivePages は表示範囲が常に連続した5ページ以内で
// [1, totalPages] に収まることを検証する。
func TestNewWindow_AtMostFiveConsecutivePages(t *testing.T) {
	for totalItems := 1; totalItems <= 120; totalItems += 7 {
		w0 := NewWindow(totalItems, 10, 1)
		for cur := 1; cur <= w0.TotalPages; cur++ {
			w := NewWindow(totalItems, 10, cur)
			if len(w.Pages) == 0 || len(w.Pages) > 5 {
				t.Fatalf("items=%d cur=%d: len(Pages) = %d", totalItems, cur, len(w.Pages))
			}
			if w.Pages[0] < 1 || w.Pages[len(w.Pages)-1] > w.TotalPages {
				t.Errorf("items=%d cur=%d: Pages %v out of [1,%d]", totalItems, cur, w.Pages, w.TotalPages)
			}
			if !slices.Contains(w.Pages, cur) {
				t.Errorf("items=%d cur=%d: Pages %v must contain current", totalItems, cur, w.Pages)
			}
			for i := 1; i < len(w.Pages); i++ {
				if w.Pages[i] != w.Pages[i-1]+1 {
					t.Errorf("items=%d cur=%d: Pages %v not consecutive", totalItems, cur, w.Pages)
				}
			}
		}
	}
}

func TestWindow_Navigate_Guard(t *testing.T) {
	w := NewWindow(200, 10, 1)

	if _, ok := w.Navigate(w.Prev()); ok {
		t.Error("Prev on first page must be a no-op")
	}
	if got, ok := w.Navigate(w.Next()); !ok || got != 2 {
		t.Errorf("Navigate(Next) = (%d, %v), want (2, true)", got, ok)
	}
	if got, ok := w.Navigate(20); !ok || got != 20 {
		t.Errorf("Navigate(20) = (%d, %v), want (20, true)", got, ok)
	}
	if got, ok := w.Navigate(21); ok || got != 1 {
		t.Errorf("Navigate(21) = (%d, %v), want (1, false)", got, ok)
	}

	last := NewWindow(200, 10, 20)
	if _, ok := last.Navigate(last.Next()); ok {
		t.Error("Next on last page must be a no-op")
	}
}
