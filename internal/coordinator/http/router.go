// Package http is the coordinator's HTTP boundary: the token endpoint, the
// process and task API, and the system surface (JWKS, health, metrics).
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/metrics"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/pkg/httpx"
	"github.com/caseflow/caseflow/pkg/jwtx"
	"github.com/caseflow/caseflow/pkg/slogx"
)

// ScopeAPIAccess is the scope every workflow endpoint requires.
const ScopeAPIAccess = "apiAccess"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys      *jwtx.KeySet
	verifier  jwtx.Verifier
	startTime time.Time
	logger    *slog.Logger

	store          store.Store
	TokenService   *service.TokenService
	ClientService  *service.ClientService
	ProcessService *service.ProcessService
	TaskService    *service.TaskService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		keys:      keys,
		verifier:  verifier,
		startTime: time.Now(),
		store:     st,
		logger:    logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.HTTPMiddleware(r.Mux),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerToken()
	r.registerProcesses()
	r.registerTasks()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerToken() {
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /token/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

// protected wraps an API handler with token verification, the apiAccess
// scope requirement, and a per-subject rate limit.
func (r *Router) protected(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(ScopeAPIAccess),
		httpx.RateLimitBySubject(limit),
	)
}

func (r *Router) registerProcesses() {
	h := &ProcessHandler{ProcessService: r.ProcessService}

	r.Mux.Handle("POST /process", r.protected(http.HandlerFunc(h.HandleStart), httpx.ModerateLimit))
	r.Mux.Handle("GET /process/{id}", r.protected(http.HandlerFunc(h.HandleGet), httpx.LenientLimit))
}

func (r *Router) registerTasks() {
	h := &TaskHandler{TaskService: r.TaskService}

	r.Mux.Handle("GET /tasks", r.protected(http.HandlerFunc(h.HandleMine), httpx.LenientLimit))
	r.Mux.Handle("GET /tasks/candidates", r.protected(http.HandlerFunc(h.HandleCandidates), httpx.LenientLimit))
	r.Mux.Handle("GET /tasks/candidates-by-group", r.protected(http.HandlerFunc(h.HandleCandidatesByGroup), httpx.LenientLimit))
	r.Mux.Handle("POST /tasks/claim", r.protected(http.HandlerFunc(h.HandleClaim), httpx.ModerateLimit))
	r.Mux.Handle("POST /tasks/unclaim", r.protected(http.HandlerFunc(h.HandleUnclaim), httpx.ModerateLimit))
	r.Mux.Handle("POST /tasks/solve", r.protected(http.HandlerFunc(h.HandleSolve), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.HandleFunc("GET /livez", r.handleLivez)
	r.Mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.Mux.Handle("GET /metrics", metrics.Handler())
}
