// Package notify publishes coordinator lifecycle events. The broker
// connection is consumed through the Publisher interface; the default
// implementation records events on the structured log so a deployment
// without a broker still has an audit trail.
package notify

import (
	"context"
	"log/slog"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
)

// Publisher receives lifecycle events after the owning transaction has
// committed. Implementations must not block the caller for long; slow
// transports should buffer internally.
type Publisher interface {
	ProcessStarted(ctx context.Context, p domain.ProcessInstance)
	ProcessCompleted(ctx context.Context, p domain.ProcessInstance)
	TaskCreated(ctx context.Context, t domain.Task)
	TaskCompleted(ctx context.Context, t domain.Task)
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	Logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{Logger: logger}
}

func (p *LogPublisher) ProcessStarted(ctx context.Context, proc domain.ProcessInstance) {
	p.Logger.InfoContext(ctx, "process_started",
		"process_id", proc.ID,
		"definition_key", proc.DefinitionKey,
		"business_key", proc.BusinessKey,
	)
}

func (p *LogPublisher) ProcessCompleted(ctx context.Context, proc domain.ProcessInstance) {
	p.Logger.InfoContext(ctx, "process_completed",
		"process_id", proc.ID,
		"definition_key", proc.DefinitionKey,
		"business_key", proc.BusinessKey,
	)
}

func (p *LogPublisher) TaskCreated(ctx context.Context, t domain.Task) {
	p.Logger.InfoContext(ctx, "task_created",
		"task_id", t.ID,
		"process_id", t.ProcessID,
		"task_name", t.Name,
		"candidate_user", t.CandidateUser,
		"candidate_group", t.CandidateGroup,
	)
}

func (p *LogPublisher) TaskCompleted(ctx context.Context, t domain.Task) {
	p.Logger.InfoContext(ctx, "task_completed",
		"task_id", t.ID,
		"process_id", t.ProcessID,
		"task_name", t.Name,
		"assignee", t.Assignee,
	)
}

// NopPublisher discards every event. Useful in tests.
type NopPublisher struct{}

func (NopPublisher) ProcessStarted(context.Context, domain.ProcessInstance)   {}
func (NopPublisher) ProcessCompleted(context.Context, domain.ProcessInstance) {}
func (NopPublisher) TaskCreated(context.Context, domain.Task)                 {}
func (NopPublisher) TaskCompleted(context.Context, domain.Task)               {}
