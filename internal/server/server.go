package server

import (
	"context"
	"fmt"
	"net/http"

	"serotonyl.ru/scrapyard/internal/config"
)

// Server оборачивает http.Server с таймаутами из конфигурации.
type Server struct {
	httpServer *http.Server
}

// New создаёт HTTP-сервер поверх собранного роутера.
func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:      handler,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
		},
	}
}

// Addr возвращает адрес, на котором слушает сервер.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe блокирует до остановки сервера.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown мягко останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
