package http

import (
	"context"
	"net/http"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UseCase is the part of usecase.UseCases served over HTTP
type UseCase interface {
	GenerateEmbedding(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID, force bool) (*usecase.GenerateEmbeddingResult, error)
	FindSimilar(ctx context.Context, ownerID model.OwnerID, input usecase.FindSimilarInput) ([]model.SimilarityResult, error)
	SuggestSmartCollections(ctx context.Context, ownerID model.OwnerID, input usecase.SuggestCollectionsInput) (*usecase.CollectionSuggestion, error)
	RunJob(ctx context.Context, job model.Job) error
}

type Server struct {
	router   *chi.Mux
	uc       UseCase
	authUC   AuthUseCase
	jobToken string
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithJobToken enables POST /jobs for push delivery. Requests must carry the
// token as a bearer credential.
func WithJobToken(token string) Options {
	return func(s *Server) {
		s.jobToken = token
	}
}

func New(uc UseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/callable", func(r chi.Router) {
		r.Use(serverTiming)
		r.Use(callerAuth(s.authUC))
		r.Post("/generateEmbedding", generateEmbeddingHandler(s.uc))
		r.Post("/findSimilar", findSimilarHandler(s.uc))
		r.Post("/suggestSmartCollections", suggestSmartCollectionsHandler(s.uc))
	})

	if s.jobToken != "" {
		r.With(jobTokenAuth(s.jobToken)).Post("/jobs", jobHandler(s.uc))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests and binds a request
// scoped logger to the context
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
