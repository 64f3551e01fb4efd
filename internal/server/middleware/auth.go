package middleware

import (
	"context"
	"net/http"
	"strings"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/features/members"
)

const sessionKey ctxKey = "session"

// SessionResolver резолвит сессионный токен в сессию участника.
// Реализуется сервисом members.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*members.Session, error)
}

// NewAuth возвращает middleware, требующий валидную сессию.
// Токен ожидается в заголовке Authorization: Bearer <token>.
// Запросы без сессии (или от забаненных) получают UNAUTHORIZED.
func NewAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			sess, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				common.WriteError(w, err)
				return
			}
			if sess == nil {
				common.WriteError(w, common.ErrUnauthorized())
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom достаёт сессию из контекста (nil — если запрос без авторизации).
func SessionFrom(ctx context.Context) *members.Session {
	sess, _ := ctx.Value(sessionKey).(*members.Session)
	return sess
}

// RequireStaff пускает дальше только ревьюеров и админов.
// Должен стоять после NewAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())
		if sess == nil || !sess.IsStaff() {
			common.WriteError(w, common.ErrUnauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewAdminAuth защищает служебные эндпоинты паролем администратора.
// Пароль передаётся заголовком X-Admin-Password и сверяется
// с argon2id-хешем из конфигурации.
func NewAdminAuth(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			password := r.Header.Get("X-Admin-Password")
			if password == "" {
				common.WriteError(w, common.ErrUnauthorized())
				return
			}
			ok, err := common.VerifyArgonHash(password, passwordHash)
			if err != nil || !ok {
				common.WriteError(w, common.ErrUnauthorized())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
