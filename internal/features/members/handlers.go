// Package members — handlers.go содержит админские HTTP-обработчики
// участников: выдачу сессионных токенов и смену ролей.
package members

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/scrapyard/internal/common"
)

// Handler обрабатывает админские запросы по участникам.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	ExternalID string `json:"externalId"`
	Username   string `json:"username"`
}

// Login создаёт участника (если его ещё нет) и выдаёт сессионный токен.
// Вызывается внешней системой авторизации после успешного OAuth.
// POST /api/v1/admin/users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	token, err := h.service.Login(r.Context(), req.ExternalID, req.Username)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetRole меняет роль участника (в т.ч. банит).
// PUT /api/v1/admin/users/{id}/role
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		common.WriteError(w, common.ErrInvalidInput("некорректный ID участника"))
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	if err := h.service.SetRole(r.Context(), userID, req.Role); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"userId": userID, "role": req.Role})
}
