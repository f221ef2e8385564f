package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/model/auth"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/timing"
	"github.com/m-mizutani/goerr/v2"
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// callerAuth authenticates callable requests from the Firebase ID token in
// the Authorization header
func callerAuth(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				writeError(r.Context(), w, goerr.Wrap(model.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			caller, err := authUC.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				writeError(r.Context(), w, err)
				return
			}

			ctx := auth.ContextWithCaller(r.Context(), caller)
			ctx = logging.With(ctx, logging.From(ctx).With("caller", caller.UID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// jobTokenAuth checks the shared secret of the push job endpoint
func jobTokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := bearerToken(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(r.Context(), w, goerr.Wrap(model.ErrUnauthenticated, "invalid job token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// serverTiming collects per-operation durations for the Server-Timing header
func serverTiming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := timing.With(r.Context(), timing.New())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
