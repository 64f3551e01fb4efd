// Package shop — handlers.go содержит HTTP-обработчики магазина:
// список товаров, покупку, гача-попытки, апгрейды и их откат,
// а также админские операции над товарами.
package shop

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/features/members"
	"serotonyl.ru/scrapyard/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы магазина.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// session достаёт сессию или пишет UNAUTHORIZED.
func session(w http.ResponseWriter, r *http.Request) *members.Session {
	sess := middleware.SessionFrom(r.Context())
	if sess == nil {
		common.WriteError(w, common.ErrUnauthorized())
	}
	return sess
}

// itemID разбирает {id} из пути. При ошибке сам отвечает INVALID_INPUT.
func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(w, common.ErrInvalidInput("некорректный ID товара"))
		return 0, false
	}
	return id, true
}

// ListItems отдаёт активные товары с персональными ценами и шансами.
// GET /api/v1/shop/items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}

	views, err := h.service.ListItems(r.Context(), sess.UserID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, views)
}

type buyRequest struct {
	Quantity        int    `json:"quantity"`
	ShippingAddress string `json:"shippingAddress"`
}

// Buy покупает товар.
// POST /api/v1/shop/items/{id}/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.service.Purchase(r.Context(), sess.UserID, id, req.Quantity, req.ShippingAddress)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

// TryLuck выполняет одну гача-попытку.
// POST /api/v1/shop/items/{id}/try-luck
func (h *Handler) TryLuck(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	result, err := h.service.TryLuck(r.Context(), sess.UserID, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

// Refine покупает апгрейд вероятности.
// POST /api/v1/shop/items/{id}/refine
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	result, err := h.service.UpgradeProbability(r.Context(), sess.UserID, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

// RefineUndo откатывает последний апгрейд вероятности.
// POST /api/v1/shop/items/{id}/refine/undo
func (h *Handler) RefineUndo(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	result, err := h.service.UndoLastUpgrade(r.Context(), sess.UserID, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

// Orders отдаёт последние заказы пользователя.
// GET /api/v1/shop/orders
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	sess := session(w, r)
	if sess == nil {
		return
	}

	orders, err := h.service.Orders(r.Context(), sess.UserID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, orders)
}

// itemRequest — тело админских запросов создания/обновления товара.
type itemRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           int64  `json:"price"`
	Stock           int    `json:"stock"`
	BaseProbability int    `json:"baseProbability"`
	BaseUpgradeCost int64  `json:"baseUpgradeCost"`
	CostMultiplier  int    `json:"costMultiplier"`
	BoostAmount     int    `json:"boostAmount"`
	Active          bool   `json:"active"`
}

func (r *itemRequest) toItem() *Item {
	return &Item{
		Name:            r.Name,
		Description:     r.Description,
		Price:           r.Price,
		Stock:           r.Stock,
		BaseProbability: r.BaseProbability,
		BaseUpgradeCost: r.BaseUpgradeCost,
		CostMultiplier:  r.CostMultiplier,
		BoostAmount:     r.BoostAmount,
		Active:          r.Active,
	}
}

// CreateItem создаёт товар (админка).
// POST /api/v1/admin/shop/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	item := req.toItem()
	if err := h.service.CreateItem(r.Context(), item); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, map[string]any{"id": item.ID})
}

// UpdateItem обновляет товар (админка).
// PUT /api/v1/admin/shop/items/{id}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	item := req.toItem()
	item.ID = id
	if err := h.service.UpdateItem(r.Context(), item); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"id": id})
}
