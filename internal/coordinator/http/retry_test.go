package http_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	httpapi "github.com/caseflow/caseflow/internal/coordinator/http"
	"github.com/caseflow/caseflow/internal/coordinator/notify"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/pkg/jwtx"
)

// wedgedTasks simulates a store that is timing out: reads fail with a
// deadline error until failures runs out, writes always fail.
type wedgedTasks struct {
	store.Tasks

	failures   int
	listCalls  int
	claimCalls int
	tasks      []domain.Task
}

func (f *wedgedTasks) ListByCandidateUser(ctx context.Context, userID string) ([]domain.Task, error) {
	f.listCalls++
	if f.failures > 0 {
		f.failures--
		return nil, context.DeadlineExceeded
	}
	return f.tasks, nil
}

func (f *wedgedTasks) Claim(ctx context.Context, taskID, userID string) error {
	f.claimCalls++
	return context.DeadlineExceeded
}

// wedgedStore hands out the stubbed task repo. The other repos are never
// touched by the endpoints under test.
type wedgedStore struct {
	store.Store
	tasks *wedgedTasks
}

func (s *wedgedStore) Tasks() store.Tasks { return s.tasks }

func newWedgedServer(t *testing.T, tasks *wedgedTasks) (*httptest.Server, string) {
	t.Helper()

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "caseflow-test",
		RSABits: 2048,
	})
	require.NoError(t, err)

	st := &wedgedStore{tasks: tasks}
	router := httpapi.NewRouter(keys.KeySet, keys.Verifier, st, slog.New(slog.DiscardHandler))
	router.TaskService = &service.TaskService{Store: st, Publisher: notify.NopPublisher{}}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	claims := jwtx.NewAccessClaims("u", []string{"apiAccess"}, nil, "client", "xzg",
		time.Hour, "caseflow-test", time.Now())
	token, err := keys.GetSigner().Sign(claims)
	require.NoError(t, err)

	return srv, token
}

func TestCandidateReadRetriedOnStoreTimeout(t *testing.T) {
	t.Run("single failure recovers on the retry", func(t *testing.T) {
		tasks := &wedgedTasks{
			failures: 1,
			tasks:    []domain.Task{{ID: "t1", ProcessID: "p1", Name: "prepareRequest", Status: domain.TaskOpen}},
		}
		srv, token := newWedgedServer(t, tasks)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/tasks/candidates?userName=xzg", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, decodeJSON[[]taskJSON](t, resp), 1)
		require.Equal(t, 2, tasks.listCalls)
	})

	t.Run("persistent failure is 503 after exactly one retry", func(t *testing.T) {
		tasks := &wedgedTasks{failures: 10}
		srv, token := newWedgedServer(t, tasks)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/tasks/candidates?userName=xzg", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decodeJSON[map[string]string](t, resp)
		require.Equal(t, "unavailable", body["error"])
		require.Equal(t, 2, tasks.listCalls)
	})
}

func TestClaimNotRetriedOnStoreTimeout(t *testing.T) {
	tasks := &wedgedTasks{}
	srv, token := newWedgedServer(t, tasks)

	form := url.Values{"taskId": {"t1"}, "userName": {"xzg"}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/tasks/claim", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	require.Equal(t, "unavailable", body["error"])
	require.Equal(t, 1, tasks.claimCalls)
}
