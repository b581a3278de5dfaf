package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

const CookieName = "token"

// AuthMiddleware принимает токен из cookie или Authorization: Bearer
// и кладёт user id в контекст запроса.
func AuthMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(CookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimSpace(auth[7:])
				}
			}
			if token == "" {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromCtx(ctx context.Context) int64 {
	if v := ctx.Value(ctxKeyUserID); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
