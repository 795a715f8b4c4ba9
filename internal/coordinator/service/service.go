// Package service holds the coordinator's business logic: token issuance,
// client registration, process lifecycle, task routing, and housekeeping.
// Services are plain structs constructed explicitly by the application
// layer; they talk to storage through the store interfaces only.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/caseflow/caseflow/pkg/idx"
)

func newID() string { return idx.New().String() }

func joinScopes(scopes []string) string { return strings.Join(scopes, " ") }

// DefaultStoreTimeout bounds any single storage round trip so a wedged
// database surfaces as ErrTimeout instead of hanging the request.
const DefaultStoreTimeout = 5 * time.Second

// withTimeout derives a bounded context for a storage call. A zero or
// negative duration falls back to DefaultStoreTimeout.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// intersectScopes returns the requested scopes that the client is allowed
// to grant. An empty request means "everything the client has".
func intersectScopes(allowed, requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(allowed))
		copy(out, allowed)
		return out
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = struct{}{}
	}

	var out []string
	for _, s := range requested {
		if _, ok := allowedSet[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// scopesWithin reports whether every requested scope is allowed.
func scopesWithin(allowed, requested []string) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := allowedSet[s]; !ok {
			return false
		}
	}
	return true
}
