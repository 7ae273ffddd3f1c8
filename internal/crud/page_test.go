package crud

import (
	"math"
	"testing"
)

func TestParsePage(t *testing.T) {
	cases := []struct {
		name        string
		page, limit string
		wantPage    int
		wantLimit   int
		wantOffset  int
	}{
		{"defaults", "", "", 1, 10, 0},
		{"explicit", "3", "20", 3, 20, 40},
		{"non numeric", "abc", "xyz", 1, 10, 0},
		{"page below one", "0", "5", 1, 5, 0},
		{"negative page", "-4", "5", 1, 5, 0},
		{"limit below one", "2", "0", 2, 1, 1},
		{"negative limit", "1", "-10", 1, 1, 0},
		{"limit above max", "1", "1000", 1, 100, 0},
		{"limit at max", "2", "100", 2, 100, 100},
		{"float values", "1.5", "2.5", 1, 10, 0},
		{"huge page is capped", "500000000000000000", "100", math.MaxInt/100 + 1, 100, math.MaxInt / 100 * 100},
		{"page out of int range", "99999999999999999999999", "100", math.MaxInt/100 + 1, 100, math.MaxInt / 100 * 100},
		{"limit out of int range", "1", "99999999999999999999999", 1, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ParsePage(tc.page, tc.limit, 10, 100)
			if p.Page != tc.wantPage || p.Limit != tc.wantLimit || p.Offset() != tc.wantOffset {
				t.Fatalf("got page=%d limit=%d offset=%d, want %d/%d/%d",
					p.Page, p.Limit, p.Offset(), tc.wantPage, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}

func TestParsePage_BadBounds(t *testing.T) {
	p := ParsePage("", "", 0, 0)
	if p.Limit != DefaultLimit {
		t.Fatalf("expected package default limit, got %d", p.Limit)
	}
	p = ParsePage("", "", 50, 20)
	if p.Limit != 20 {
		t.Fatalf("default must not exceed max, got %d", p.Limit)
	}
}

func TestParsePage_OffsetNeverNegative(t *testing.T) {
	for _, limit := range []string{"1", "7", "20", "100"} {
		p := ParsePage("9223372036854775807", limit, 10, 100)
		if p.Offset() < 0 {
			t.Fatalf("limit=%s: offset overflowed to %d (page=%d)", limit, p.Offset(), p.Page)
		}
	}
}
