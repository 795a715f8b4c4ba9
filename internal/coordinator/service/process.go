package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/flow"
	"github.com/caseflow/caseflow/internal/coordinator/notify"
	"github.com/caseflow/caseflow/internal/coordinator/store"
)

// ProcessService starts and reads process instances. Starting an instance
// seeds the first task of its flow definition in the same transaction, so
// there is never a running process without a current task.
type ProcessService struct {
	Store        store.Store
	Flows        *flow.Registry
	Publisher    notify.Publisher
	StoreTimeout time.Duration
}

// StartProcessRequest describes a new instance. Variables are merged with
// the owner variable derived from Starter.
type StartProcessRequest struct {
	DefinitionKey string
	BusinessKey   string
	Starter       string
	Variables     map[string]string
}

// Start creates a running instance of the definition and its first task.
func (s *ProcessService) Start(ctx context.Context, req StartProcessRequest) (domain.ProcessInstance, error) {
	if req.Starter == "" {
		return domain.ProcessInstance{}, fmt.Errorf("%w: starter is required", ErrInvalidState)
	}

	def, err := s.Flows.Lookup(req.DefinitionKey)
	if err != nil {
		if errors.Is(err, flow.ErrUnknownDefinition) {
			return domain.ProcessInstance{}, fmt.Errorf("%w: definition %q", ErrNotFound, req.DefinitionKey)
		}
		return domain.ProcessInstance{}, err
	}

	variables := make(map[string]string, len(req.Variables)+1)
	for k, v := range req.Variables {
		variables[k] = v
	}
	if _, ok := variables[domain.OwnerVariable]; !ok {
		variables[domain.OwnerVariable] = req.Starter
	}

	proc := domain.ProcessInstance{
		ID:            newID(),
		DefinitionKey: def.Key,
		BusinessKey:   req.BusinessKey,
		StarterID:     req.Starter,
		Variables:     variables,
		Status:        domain.ProcessRunning,
	}

	first := def.First()
	task := domain.Task{
		ID:             newID(),
		ProcessID:      proc.ID,
		Name:           first.Name,
		CandidateUser:  first.CandidateUserFor(variables),
		CandidateGroup: first.CandidateGroup,
		Status:         domain.TaskOpen,
	}

	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	err = s.Store.WithTx(cctx, func(tx store.Tx) error {
		if err := tx.Processes().CreateProcess(cctx, proc); err != nil {
			return err
		}
		return tx.Tasks().CreateTask(cctx, task)
	})
	if err != nil {
		return domain.ProcessInstance{}, mapStoreErr(err)
	}

	if s.Publisher != nil {
		s.Publisher.ProcessStarted(ctx, proc)
		s.Publisher.TaskCreated(ctx, task)
	}
	return proc, nil
}

// Get returns an instance by id.
func (s *ProcessService) Get(ctx context.Context, id string) (domain.ProcessInstance, error) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	proc, err := s.Store.Processes().GetProcessByID(cctx, id)
	if err != nil {
		return domain.ProcessInstance{}, mapStoreErr(err)
	}
	return proc, nil
}
