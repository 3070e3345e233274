package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coinledger/internal/auth"
	"coinledger/internal/store"
)

type Server struct {
	store     *store.Store
	authToken string
	admin     *auth.Signer
	logger    Logger
}

type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func NewServer(st *store.Store, authToken string, admin *auth.Signer, logger Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Server{
		store:     st,
		authToken: authToken,
		admin:     admin,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}/balance", s.handleGetBalance)
		r.Get("/users/{id}/transactions", s.handleListTransactions)

		r.Post("/purchases", s.handlePurchase)
		r.Post("/completions", s.handleCompleteCourse)

		r.Post("/withdrawals", s.handleCreateWithdrawal)
		r.Get("/withdrawals/{id}", s.handleGetWithdrawal)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminMiddleware)

			r.Post("/courses", s.handleCreateCourse)
			r.Get("/withdrawals", s.handleListWithdrawals)
			r.Post("/withdrawals/{id}/resolve", s.handleResolveWithdrawal)
		})
	})

	return r
}

// authMiddleware checks the service bearer token shared with the calling
// collaborator.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if !secureCompare(token, s.authToken) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminMiddleware requires a capability token with the admin role, issued
// by the identity collaborator. Anything else is denied.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
		if raw == "" {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		claims, err := s.admin.Verify(raw)
		if err != nil || !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
