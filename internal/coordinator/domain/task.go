package domain

import "time"

// TaskStatus is the lifecycle state of a task. Transitions are
// open -> claimed -> completed, with claimed -> open via explicit unclaim.
// No transition skips claimed before completed.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskClaimed   TaskStatus = "claimed"
	TaskCompleted TaskStatus = "completed"
)

// Task is a unit of work inside a process instance. A task is routed either
// to a specific candidate user or to a candidate group (role); claiming sets
// the assignee exclusively. Completed tasks are immutable and excluded from
// every open-pool query.
type Task struct {
	ID             string
	ProcessID      string
	Name           string
	CandidateUser  string // optional
	CandidateGroup string // optional
	Assignee       string // set on claim
	Status         TaskStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOpen reports whether the task is still claimable.
func (t Task) IsOpen() bool { return t.Status == TaskOpen }
