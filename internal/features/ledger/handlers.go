// Package ledger — handlers.go содержит HTTP-обработчики баланса.
package ledger

import (
	"encoding/json"
	"net/http"
	"strconv"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы баланса и лидерборда.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance отдаёт снимок баланса текущего пользователя.
// GET /api/v1/economy/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	if sess == nil {
		common.WriteError(w, common.ErrUnauthorized())
		return
	}

	snap, err := h.service.GetBalance(r.Context(), sess.UserID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, snap)
}

// Leaderboard отдаёт топ участников по заработанным скрапам.
// GET /api/v1/economy/leaderboard?limit=25
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, entries)
}

type bonusRequest struct {
	UserID int64  `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// GrantBonus начисляет ручной бонус участнику (админка).
// POST /api/v1/admin/economy/bonus
func (h *Handler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	// Начислил админ; сессии у админки нет, поэтому granted_by = 0
	var grantedBy int64
	if sess := middleware.SessionFrom(r.Context()); sess != nil {
		grantedBy = sess.UserID
	}

	if err := h.service.GrantBonus(r.Context(), req.UserID, req.Amount, grantedBy, req.Reason); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "amount": req.Amount})
}
