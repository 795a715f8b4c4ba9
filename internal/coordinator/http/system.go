package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/caseflow/caseflow/pkg/httpx"
	"github.com/caseflow/caseflow/pkg/jwtx"
)

// JWKSHandler serves GET /.well-known/jwks.json with the public keys
// verifiers need. The response is cacheable, unlike the API payloads.
func JWKSHandler(keys *jwtx.KeySet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(keys.JWKS())
	})
}

// handleLivez reports process liveness.
func (r *Router) handleLivez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleReadyz reports readiness: the store must answer a ping.
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if err := r.store.Ping(ctx); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "store ping failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
