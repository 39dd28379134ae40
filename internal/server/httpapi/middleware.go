package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// Authenticate validates the bearer token and stores the user ID in the
// request context.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			_ = render.Render(w, r, errRender(common.ErrUnauthorized))
			return
		}

		userID, err := auth.GetUserIDFromToken(token, []byte(s.config.SecretKey))
		if err != nil {
			_ = render.Render(w, r, errRender(err))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActiveLicense gates a route on the user owning a bound-active
// license. Must run after Authenticate.
func (s *Server) RequireActiveLicense(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			_ = render.Render(w, r, errRender(common.ErrUnauthorized))
			return
		}

		active, err := s.licenses.HasActiveLicense(r.Context(), userID)
		if err != nil {
			_ = render.Render(w, r, errRender(err))
			return
		}
		if !active {
			_ = render.Render(w, r, &ErrResponse{
				HTTPStatusCode: http.StatusForbidden,
				Error:          "no active license",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
