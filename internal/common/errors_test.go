package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsError(t *testing.T) {
	t.Run("типизированная ошибка проходит как есть", func(t *testing.T) {
		err := ErrOutOfStock()
		got := AsError(err)
		if got.Code != CodeOutOfStock {
			t.Errorf("код = %s, ожидался OUT_OF_STOCK", got.Code)
		}
	})

	t.Run("обёрнутая ошибка разворачивается", func(t *testing.T) {
		err := fmt.Errorf("контекст: %w", ErrNothingToUndo())
		got := AsError(err)
		if got.Code != CodeNothingToUndo {
			t.Errorf("код = %s, ожидался NOTHING_TO_UNDO", got.Code)
		}
	})

	t.Run("чужая ошибка превращается в INTERNAL", func(t *testing.T) {
		got := AsError(errors.New("connection refused"))
		if got.Code != CodeInternal {
			t.Errorf("код = %s, ожидался INTERNAL", got.Code)
		}
	})
}

func TestErrInsufficientFunds(t *testing.T) {
	err := ErrInsufficientFunds(500, 120)
	if err.Required != 500 || err.Available != 120 {
		t.Errorf("required/available = %d/%d, ожидалось 500/120", err.Required, err.Available)
	}
	if err.Code != CodeInsufficientFunds {
		t.Errorf("код = %s", err.Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code     Code
		expected int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeOutOfStock, http.StatusConflict},
		{CodeInsufficientFunds, http.StatusConflict},
		{CodeMaxProbability, http.StatusConflict},
		{CodeNothingToUndo, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := httpStatus(tc.code); got != tc.expected {
			t.Errorf("httpStatus(%s) = %d, ожидалось %d", tc.code, got, tc.expected)
		}
	}
}
