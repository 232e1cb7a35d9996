package session

import (
	"context"
	"log/slog"
	"net/http"
)

// CookieName is the name of the session cookie.
const CookieName = "compiler_session"

type contextKey string

const stateKey contextKey = "session"

// Middleware attaches the caller's State to the request context.
//
// A valid cookie resolves to its session (recreated with defaults if it was
// evicted). A missing or invalid cookie starts a new session and sets a
// fresh cookie on the response. Valid cookies are re-signed as well so the
// token lifetime slides with use.
func Middleware(store *Store, tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var st *State
			if c, err := r.Cookie(CookieName); err == nil {
				if id, err := tokens.Verify(c.Value); err == nil {
					st = store.GetOrCreate(id)
				} else {
					logger.Debug("discarding invalid session cookie", slog.String("error", err.Error()))
				}
			}
			if st == nil {
				st = store.Create()
			}

			token, err := tokens.Issue(st.ID())
			if err != nil {
				logger.Error("failed to sign session cookie", slog.String("error", err.Error()))
			} else {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Secure:   r.TLS != nil,
					MaxAge:   int(tokens.lifetime.Seconds()),
				})
			}

			ctx := context.WithValue(r.Context(), stateKey, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the State attached by Middleware.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(stateKey).(*State)
	return st, ok && st != nil
}

// WithState attaches st to ctx. Used by tests and by callers outside Middleware.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}
