package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/flow"
	httpapi "github.com/caseflow/caseflow/internal/coordinator/http"
	"github.com/caseflow/caseflow/internal/coordinator/notify"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/internal/coordinator/store/drivers/sqlite"
	"github.com/caseflow/caseflow/pkg/cryptox"
	"github.com/caseflow/caseflow/pkg/idx"
	"github.com/caseflow/caseflow/pkg/jwtx"
)

type testServer struct {
	*httptest.Server
	store store.Store
	keys  *jwtx.KeyManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "caseflow-test",
		RSABits: 2048,
	})
	require.NoError(t, err)

	flows := flow.NewRegistry()
	for _, def := range flow.Builtin() {
		require.NoError(t, flows.Register(def))
	}
	pub := notify.NopPublisher{}

	router := httpapi.NewRouter(keys.KeySet, keys.Verifier, st, slog.New(slog.DiscardHandler))
	router.TokenService = &service.TokenService{Store: st, Keys: keys, Issuer: "caseflow-test"}
	router.ClientService = &service.ClientService{Store: st}
	router.ProcessService = &service.ProcessService{Store: st, Flows: flows, Publisher: pub}
	router.TaskService = &service.TaskService{Store: st, Flows: flows, Publisher: pub}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv, store: st, keys: keys}
	ts.seed(t)
	return ts
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashSecret("password")
	require.NoError(t, err)
	require.NoError(t, s.store.Clients().CreateClient(ctx, domain.Client{
		ID: "client", Name: "default", SecretHash: hash,
		GrantTypes:  []string{domain.GrantPassword, domain.GrantClientCredentials, domain.GrantRefreshToken},
		Scopes:      []string{"apiAccess"},
		Authorities: []string{"ROLE_USER"},
		AccessTTL:   7200 * time.Second,
	}))

	for _, u := range []struct{ name, password, role string }{
		{"xzg", "123", "staff"},
		{"boss", "b0ss", "manager"},
	} {
		hash, err := cryptox.HashSecret(u.password)
		require.NoError(t, err)
		require.NoError(t, s.store.Users().CreateUser(ctx, domain.User{
			ID: idx.New().String(), Username: u.name, PasswordHash: hash, Role: u.role,
		}))
	}
}

func (s *testServer) postForm(t *testing.T, path, bearer string, form url.Values) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (s *testServer) get(t *testing.T, path, bearer string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *testServer) tokenFor(t *testing.T, username, password string) string {
	t.Helper()

	resp := s.postForm(t, "/token", "", url.Values{
		"grant_type":    {"password"},
		"client_id":     {"client"},
		"client_secret": {"password"},
		"username":      {username},
		"password":      {password},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestTokenEndpoint(t *testing.T) {
	s := newTestServer(t)

	t.Run("password grant", func(t *testing.T) {
		resp := s.postForm(t, "/token", "", url.Values{
			"grant_type":    {"password"},
			"client_id":     {"client"},
			"client_secret": {"password"},
			"username":      {"xzg"},
			"password":      {"123"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		body := decodeJSON[map[string]any](t, resp)
		require.NotEmpty(t, body["access_token"])
		require.NotEmpty(t, body["refresh_token"])
		require.Equal(t, "Bearer", body["token_type"])
		require.EqualValues(t, 7200, body["expires_in"])
		require.Equal(t, "apiAccess", body["scope"])
	})

	t.Run("bad client credentials", func(t *testing.T) {
		resp := s.postForm(t, "/token", "", url.Values{
			"grant_type":    {"password"},
			"client_id":     {"client"},
			"client_secret": {"wrong"},
			"username":      {"xzg"},
			"password":      {"123"},
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "invalid_client", body["error"])
	})

	t.Run("bad user password", func(t *testing.T) {
		resp := s.postForm(t, "/token", "", url.Values{
			"grant_type":    {"password"},
			"client_id":     {"client"},
			"client_secret": {"password"},
			"username":      {"xzg"},
			"password":      {"wrong"},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "invalid_grant", body["error"])
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		resp := s.postForm(t, "/token", "", url.Values{
			"grant_type": {"implicit"},
			"client_id":  {"client"},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "unsupported_grant_type", body["error"])
	})

	t.Run("missing parameters", func(t *testing.T) {
		resp := s.postForm(t, "/token", "", url.Values{"grant_type": {"password"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "invalid_request", body["error"])
	})
}

func TestBearerProtection(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		resp := s.get(t, "/tasks?userName=xzg", "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := s.get(t, "/tasks?userName=xzg", "not.a.jwt")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u", []string{"apiAccess"}, nil, "client", "xzg",
			-time.Minute, "caseflow-test", time.Now().Add(-2*time.Minute))
		expired, err := s.keys.GetSigner().Sign(claims)
		require.NoError(t, err)

		resp := s.get(t, "/tasks?userName=xzg", expired)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token without the api scope", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u", []string{"other"}, nil, "client", "xzg",
			time.Hour, "caseflow-test", time.Now())
		token, err := s.keys.GetSigner().Sign(claims)
		require.NoError(t, err)

		resp := s.get(t, "/tasks?userName=xzg", token)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

type taskJSON struct {
	ID        string `json:"id"`
	ProcessID string `json:"processId"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

func TestWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	userToken := s.tokenFor(t, "xzg", "123")
	bossToken := s.tokenFor(t, "boss", "b0ss")

	// Start: the starter comes from the token's username claim.
	resp := s.postForm(t, "/process", userToken, url.Values{
		"businessKey": {"businessKey1"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The starter sees the prepare task.
	resp = s.get(t, "/tasks?userName=xzg", userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decodeJSON[[]taskJSON](t, resp)
	require.Len(t, mine, 1)
	require.Equal(t, "prepareRequest", mine[0].Name)
	prepareID := mine[0].ID

	// Claim and solve it.
	resp = s.postForm(t, "/tasks/claim", userToken, url.Values{
		"taskId": {prepareID}, "userName": {"xzg"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.postForm(t, "/tasks/solve", userToken, url.Values{
		"taskId": {prepareID}, "userName": {"xzg"}, "approved": {"true"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The review task lands in the manager pool.
	resp = s.get(t, "/tasks/candidates-by-group?roleName=manager", bossToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pool := decodeJSON[[]taskJSON](t, resp)
	require.Len(t, pool, 1)
	require.Equal(t, "managerReview", pool[0].Name)
	reviewID := pool[0].ID

	// A second claimant is turned away with 409.
	resp = s.postForm(t, "/tasks/claim", bossToken, url.Values{
		"taskId": {reviewID}, "userName": {"boss"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.postForm(t, "/tasks/claim", userToken, url.Values{
		"taskId": {reviewID}, "userName": {"xzg"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict := decodeJSON[map[string]string](t, resp)
	require.Equal(t, "already_claimed", conflict["error"])

	// Solving without holding the claim is also a conflict.
	resp = s.postForm(t, "/tasks/solve", userToken, url.Values{
		"taskId": {reviewID}, "userName": {"xzg"}, "approved": {"true"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict = decodeJSON[map[string]string](t, resp)
	require.Equal(t, "not_claimed", conflict["error"])

	// Manager approves; the process finishes and the pool drains.
	resp = s.postForm(t, "/tasks/solve", bossToken, url.Values{
		"taskId": {reviewID}, "userName": {"boss"}, "approved": {"true"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.get(t, "/process/"+mine[0].ProcessID, userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	proc := decodeJSON[map[string]any](t, resp)
	require.Equal(t, "completed", proc["status"])

	resp = s.get(t, "/tasks/candidates-by-group?roleName=manager", bossToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decodeJSON[[]taskJSON](t, resp))
}

func TestTaskEndpointErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "xzg", "123")

	t.Run("claiming an unknown task is 404", func(t *testing.T) {
		resp := s.postForm(t, "/tasks/claim", token, url.Values{
			"taskId": {"nope"}, "userName": {"xzg"},
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "not_found", body["error"])
	})

	t.Run("solve needs a boolean", func(t *testing.T) {
		resp := s.postForm(t, "/tasks/solve", token, url.Values{
			"taskId": {"x"}, "userName": {"xzg"}, "approved": {"maybe"},
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown process is 404", func(t *testing.T) {
		resp := s.get(t, "/process/missing", token)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("jwks", func(t *testing.T) {
		resp := s.get(t, "/.well-known/jwks.json", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeJSON[map[string][]map[string]any](t, resp)
		require.NotEmpty(t, body["keys"])
		require.Equal(t, "RSA", body["keys"][0]["kty"])
	})

	t.Run("livez and readyz", func(t *testing.T) {
		resp := s.get(t, "/livez", "")
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.get(t, "/readyz", "")
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp := s.get(t, "/metrics", "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(raw), "caseflow_http_request_duration_seconds")
	})
}
