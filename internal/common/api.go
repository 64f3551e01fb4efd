// Package common — api.go формирует JSON-ответы API.
// Единый конверт: {"success": true, "data": ...} для успеха и
// {"success": false, "error": {...}} для ошибок. Коды ошибок — из errors.go,
// наружу никогда не уходят ни стектрейсы, ни ошибки хранилища.
package common

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// httpStatus сопоставляет код ошибки HTTP-статусу.
func httpStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeOutOfStock, CodeInsufficientFunds, CodeMaxProbability, CodeNothingToUndo:
		// Конфликт состояния: запрос корректный, но состояние не позволяет.
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON отправляет успешный JSON-ответ.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// WriteError отправляет ошибку в едином конверте.
// Нетипизированные ошибки логируются и превращаются в INTERNAL.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := AsError(err)
	if apiErr.Code == CodeInternal {
		log.WithError(err).Error("Внутренняя ошибка API")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(apiErr.Code))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   apiErr,
	})
}
