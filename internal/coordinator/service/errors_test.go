package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

// erringTasks fails every call with a fixed error.
type erringTasks struct {
	store.Tasks
	err error
}

func (f *erringTasks) ListByCandidateUser(ctx context.Context, userID string) ([]domain.Task, error) {
	return nil, f.err
}

func (f *erringTasks) Claim(ctx context.Context, taskID, userID string) error {
	return f.err
}

type erringStore struct {
	store.Store
	tasks *erringTasks
}

func (s *erringStore) Tasks() store.Tasks { return s.tasks }

// TestStoreErrorTaxonomy checks that raw driver and context failures never
// leak to callers: they surface as the service sentinels the HTTP boundary
// keys its retry and status decisions on.
func TestStoreErrorTaxonomy(t *testing.T) {
	ctx := context.Background()

	svcFor := func(err error) *service.TaskService {
		return &service.TaskService{Store: &erringStore{tasks: &erringTasks{err: err}}}
	}

	t.Run("deadline maps to timeout", func(t *testing.T) {
		_, err := svcFor(context.DeadlineExceeded).CandidateTasks(ctx, "xzg")
		require.ErrorIs(t, err, service.ErrTimeout)

		err = svcFor(context.DeadlineExceeded).Claim(ctx, "t1", "xzg")
		require.ErrorIs(t, err, service.ErrTimeout)
	})

	t.Run("unknown driver error maps to unavailable", func(t *testing.T) {
		dbErr := errors.New("disk I/O error")
		_, err := svcFor(dbErr).CandidateTasks(ctx, "xzg")
		require.ErrorIs(t, err, service.ErrUnavailable)
		require.ErrorIs(t, err, dbErr)
	})

	t.Run("store sentinels map to domain errors", func(t *testing.T) {
		_, err := svcFor(store.ErrNotFound).CandidateTasks(ctx, "xzg")
		require.ErrorIs(t, err, service.ErrNotFound)

		err = svcFor(store.ErrAlreadyClaimed).Claim(ctx, "t1", "xzg")
		require.ErrorIs(t, err, service.ErrAlreadyClaimed)
	})
}
