// Package projects — handlers.go содержит служебные HTTP-обработчики
// для воркфлоу ревью: зачёт награды, зачётные часы, оверрайд часов.
package projects

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/scrapyard/internal/common"
)

// Handler обрабатывает служебные запросы по проектам.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// projectID разбирает {id} из пути. При ошибке сам отвечает INVALID_INPUT.
func projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(w, common.ErrInvalidInput("некорректный ID проекта"))
		return 0, false
	}
	return id, true
}

type awardRequest struct {
	Scraps int64 `json:"scraps"`
}

// Award зачитывает награду проекту. Хук воркфлоу ревью:
// вызывается после того, как ревьюер одобрил проект.
// POST /api/v1/internal/projects/{id}/award
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	if err := h.service.CreditAward(r.Context(), id, req.Scraps); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{
		"projectId": id,
		"scraps":    req.Scraps,
	})
}

// EffectiveHours отдаёт зачётные часы проекта после вычета пересечений.
// GET /api/v1/internal/projects/{id}/effective-hours
func (h *Handler) EffectiveHours(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	hours, err := h.service.EffectiveHours(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{
		"projectId":      id,
		"effectiveHours": hours,
	})
}

type overrideRequest struct {
	// nil — снять оверрайд и вернуться к сырым часам из тайм-трекера.
	Hours *float64 `json:"hours"`
}

// SetHoursOverride выставляет (или снимает) ревьюерский оверрайд часов.
// PUT /api/v1/internal/projects/{id}/hours-override
func (h *Handler) SetHoursOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ErrInvalidInput("некорректное тело запроса"))
		return
	}

	if err := h.service.SetHoursOverride(r.Context(), id, req.Hours); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"projectId": id})
}
