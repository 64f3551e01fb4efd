// Package middleware содержит промежуточные обработчики HTTP:
// восстановление после паники, request-id, логирование, rate-limiting
// и авторизацию.
package middleware

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/common"
)

// Recovery перехватывает панику обработчика: пишет стек в лог
// и отвечает INTERNAL, не роняя процесс.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"panic": rec,
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				common.WriteError(w, common.ErrInternal())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
