// Package server собирает HTTP-маршруты и сам HTTP-сервер.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/config"
	"serotonyl.ru/scrapyard/internal/features/ledger"
	"serotonyl.ru/scrapyard/internal/features/members"
	"serotonyl.ru/scrapyard/internal/features/projects"
	"serotonyl.ru/scrapyard/internal/features/shop"
	"serotonyl.ru/scrapyard/internal/server/middleware"
)

// Handlers — все HTTP-обработчики, которые монтирует роутер.
type Handlers struct {
	Ledger   *ledger.Handler
	Shop     *shop.Handler
	Projects *projects.Handler
	Members  *members.Handler
}

// NewRouter собирает chi-роутер со всем стеком middleware
// и маршрутами /api/v1.
func NewRouter(cfg *config.Config, resolver middleware.SessionResolver, rl *middleware.RateLimiter, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Порядок важен: сначала восстановление после паники,
	// потом request-id, лог и CORS.
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Password"},
		MaxAge:         300,
	}))

	auth := middleware.NewAuth(resolver)
	adminAuth := middleware.NewAdminAuth(cfg.AdminPasswordHash)

	r.Route("/api/v1", func(r chi.Router) {
		// Публичные маршруты
		r.Get("/health", healthHandler)
		r.Get("/economy/leaderboard", h.Ledger.Leaderboard)

		// Маршруты участников: сессия + rate limit по пользователю
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(rl.Middleware)

			r.Get("/economy/balance", h.Ledger.Balance)

			r.Get("/shop/items", h.Shop.ListItems)
			r.Post("/shop/items/{id}/buy", h.Shop.Buy)
			r.Post("/shop/items/{id}/try-luck", h.Shop.TryLuck)
			r.Post("/shop/items/{id}/refine", h.Shop.Refine)
			r.Post("/shop/items/{id}/refine/undo", h.Shop.RefineUndo)
			r.Get("/shop/orders", h.Shop.Orders)
		})

		// Служебные маршруты воркфлоу ревью: сессия ревьюера/админа
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.RequireStaff)

			r.Post("/internal/projects/{id}/award", h.Projects.Award)
			r.Get("/internal/projects/{id}/effective-hours", h.Projects.EffectiveHours)
			r.Put("/internal/projects/{id}/hours-override", h.Projects.SetHoursOverride)
		})

		// Админка: пароль администратора в заголовке
		r.Group(func(r chi.Router) {
			r.Use(adminAuth)

			r.Post("/admin/shop/items", h.Shop.CreateItem)
			r.Put("/admin/shop/items/{id}", h.Shop.UpdateItem)
			r.Post("/admin/economy/bonus", h.Ledger.GrantBonus)
			r.Post("/admin/users/login", h.Members.Login)
			r.Put("/admin/users/{id}/role", h.Members.SetRole)
		})
	})

	return r
}

// healthHandler — проверка живости сервиса.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
