package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/flow"
	"github.com/caseflow/caseflow/internal/coordinator/metrics"
	"github.com/caseflow/caseflow/internal/coordinator/notify"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

// TaskService routes, claims, and resolves tasks. Solving a task runs the
// flow decision and seeds the follow-up task (or completes the process) in
// one transaction.
type TaskService struct {
	Store        store.Store
	Flows        *flow.Registry
	Publisher    notify.Publisher
	StoreTimeout time.Duration

	// Decide overrides the branching policy. Nil means flow.DefaultDecision.
	Decide flow.Decision
}

func (s *TaskService) decision() flow.Decision {
	if s.Decide != nil {
		return s.Decide
	}
	return flow.DefaultDecision
}

// TasksFor returns the user's actionable work: tasks they have claimed plus
// open tasks where they are the candidate user, oldest first.
func (s *TaskService) TasksFor(ctx context.Context, username string) ([]domain.Task, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	claimed, err := s.Store.Tasks().ListByAssignee(cctx, username)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	candidate, err := s.Store.Tasks().ListByCandidateUser(cctx, username)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	tasks := append(claimed, candidate...)
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// CandidateTasks returns open tasks routed to the user directly.
func (s *TaskService) CandidateTasks(ctx context.Context, username string) ([]domain.Task, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	tasks, err := s.Store.Tasks().ListByCandidateUser(cctx, username)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return tasks, nil
}

// CandidateGroupTasks returns open tasks routed to the role.
func (s *TaskService) CandidateGroupTasks(ctx context.Context, role string) ([]domain.Task, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	tasks, err := s.Store.Tasks().ListByCandidateGroup(cctx, role)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return tasks, nil
}

// Claim assigns the task to the user. Claiming a task already held by the
// same user succeeds; a task held by someone else returns ErrAlreadyClaimed.
func (s *TaskService) Claim(ctx context.Context, taskID, username string) error {
	if taskID == "" || username == "" {
		return fmt.Errorf("%w: task id and user are required", ErrInvalidState)
	}

	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	return mapStoreErr(s.Store.Tasks().Claim(cctx, taskID, username))
}

// Unclaim releases a claimed task back to its candidate pool. Only the
// current assignee may release.
func (s *TaskService) Unclaim(ctx context.Context, taskID, username string) error {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	return mapStoreErr(s.Store.Tasks().Unclaim(cctx, taskID, username))
}

// Solve resolves the task the user has claimed. Approval advances the flow
// to its next step; rejection reopens the step's fallback or, when there is
// none, also ends the process. The completed task, the follow-up task, and
// the process status change commit atomically.
func (s *TaskService) Solve(ctx context.Context, taskID, username string, approved bool) error {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	var (
		solved    domain.Task
		follow    *domain.Task
		completed *domain.ProcessInstance
	)

	err := s.Store.WithTx(cctx, func(tx store.Tx) error {
		task, err := tx.Tasks().GetTaskByID(cctx, taskID)
		if err != nil {
			return err
		}
		if task.Status == domain.TaskCompleted {
			return ErrInvalidState
		}
		if task.Status != domain.TaskClaimed || task.Assignee != username {
			return ErrNotClaimed
		}

		proc, err := tx.Processes().GetProcessByID(cctx, task.ProcessID)
		if err != nil {
			return err
		}

		def, err := s.Flows.Lookup(proc.DefinitionKey)
		if err != nil {
			return err
		}
		step, ok := def.StepByName(task.Name)
		if !ok {
			return fmt.Errorf("%w: step %q not in definition %q", ErrInvalidState, task.Name, def.Key)
		}

		if err := tx.Tasks().CompleteTask(cctx, task.ID); err != nil {
			return err
		}
		solved = task
		solved.Status = domain.TaskCompleted

		next, cont := s.decision()(def, step, approved)
		if !cont {
			if err := tx.Processes().UpdateProcessStatus(cctx, proc.ID, domain.ProcessCompleted); err != nil {
				return err
			}
			proc.Status = domain.ProcessCompleted
			completed = &proc
			return nil
		}

		nt := domain.Task{
			ID:             newID(),
			ProcessID:      proc.ID,
			Name:           next.Name,
			CandidateUser:  next.CandidateUserFor(proc.Variables),
			CandidateGroup: next.CandidateGroup,
			Status:         domain.TaskOpen,
		}
		if err := tx.Tasks().CreateTask(cctx, nt); err != nil {
			return err
		}
		follow = &nt
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}

	if s.Publisher != nil {
		s.Publisher.TaskCompleted(ctx, solved)
		if follow != nil {
			s.Publisher.TaskCreated(ctx, *follow)
		}
		if completed != nil {
			s.Publisher.ProcessCompleted(ctx, *completed)
		}
	}
	if completed != nil {
		metrics.ProcessesCompleted.Inc()
	}
	return nil
}
