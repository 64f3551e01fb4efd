package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		expected string
	}{
		{"обычный токен", "Bearer abc123", "abc123"},
		{"регистр схемы не важен", "bearer abc123", "abc123"},
		{"пустой заголовок", "", ""},
		{"без схемы", "abc123", ""},
		{"чужая схема", "Basic abc123", ""},
		{"лишние пробелы вокруг токена", "Bearer   abc123  ", "abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			if got := bearerToken(r); got != tc.expected {
				t.Errorf("bearerToken(%q) = %q, ожидалось %q", tc.header, got, tc.expected)
			}
		})
	}
}
