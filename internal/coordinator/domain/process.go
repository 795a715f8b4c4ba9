package domain

import "time"

// ProcessStatus is the lifecycle state of a process instance.
type ProcessStatus string

const (
	ProcessRunning   ProcessStatus = "running"
	ProcessCompleted ProcessStatus = "completed"
)

// OwnerVariable is the well-known variable recording the user that started
// the process.
const OwnerVariable = "userName"

// ProcessInstance is one run of a flow definition. Variables are seeded at
// start and correlate the instance to external domain data via BusinessKey.
type ProcessInstance struct {
	ID            string
	DefinitionKey string
	BusinessKey   string
	StarterID     string
	Variables     map[string]string
	Status        ProcessStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
