package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/internal/admin"
	"github.com/upb/llm-gateway/internal/reqctx"
	"github.com/upb/llm-gateway/internal/selector"
	"github.com/upb/llm-gateway/internal/storage"
)

// Server holds the dependencies the HTTP layer routes against.
type Server struct {
	selector *selector.Selector
	admin    *admin.Service
	db       *storage.DB
	logger   *zap.Logger
}

// NewServer builds a Server.
func NewServer(sel *selector.Selector, adminSvc *admin.Service, db *storage.DB, logger *zap.Logger) *Server {
	return &Server{selector: sel, admin: adminSvc, db: db, logger: logger}
}

// Router builds the chi router for the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Provider-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/chat/completions", s.handleChatCompletions)

	r.Route("/admin/providers", func(r chi.Router) {
		r.Get("/", s.handleListProviders)
		r.Put("/{providerID}/credentials", s.handleSetCredential)
		r.Delete("/{providerID}/credentials", s.handleDeleteCredential)
		r.Post("/{providerID}/healthcheck", s.handleHealthcheck)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "invalid_request_error", "not_found", "Resource not found")
	})

	return r
}

// requestIDMiddleware reads X-Request-Id or mints a fresh one, binds it
// to the request context, and echoes it back on egress.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = reqctx.NewRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := reqctx.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", reqctx.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
