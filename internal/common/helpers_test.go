package common

import "testing"

func TestPluralizeScraps(t *testing.T) {
	cases := []struct {
		n        int64
		expected string
	}{
		{1, "скрап"},
		{2, "скрапа"},
		{4, "скрапа"},
		{5, "скрапов"},
		{11, "скрапов"},
		{12, "скрапов"},
		{14, "скрапов"},
		{21, "скрап"},
		{22, "скрапа"},
		{25, "скрапов"},
		{100, "скрапов"},
		{101, "скрап"},
		{111, "скрапов"},
		{0, "скрапов"},
	}
	for _, tc := range cases {
		if got := PluralizeScraps(tc.n); got != tc.expected {
			t.Errorf("PluralizeScraps(%d) = %q, ожидалось %q", tc.n, got, tc.expected)
		}
	}
}

func TestFormatScraps(t *testing.T) {
	if got := FormatScraps(150); got != "150 скрапов" {
		t.Errorf("FormatScraps(150) = %q", got)
	}
	if got := FormatScraps(21); got != "21 скрап" {
		t.Errorf("FormatScraps(21) = %q", got)
	}
}

func TestPluralizeUsers(t *testing.T) {
	cases := []struct {
		n        int
		expected string
	}{
		{1, "участник"},
		{3, "участника"},
		{7, "участников"},
		{11, "участников"},
		{21, "участник"},
	}
	for _, tc := range cases {
		if got := PluralizeUsers(tc.n); got != tc.expected {
			t.Errorf("PluralizeUsers(%d) = %q, ожидалось %q", tc.n, got, tc.expected)
		}
	}
}
