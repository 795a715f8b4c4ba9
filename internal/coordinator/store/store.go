package store

import (
	"context"
	"errors"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAlreadyClaimed is returned by the claim compare-and-set when the
	// task is held by a different assignee.
	ErrAlreadyClaimed = errors.New("store: task already claimed")

	// ErrNotClaimed is returned when an operation requires a claimed task.
	ErrNotClaimed = errors.New("store: task not claimed")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Clients() Clients
	Users() Users
	RefreshTokens() RefreshTokens
	Processes() Processes
	Tasks() Tasks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Use it for multi-step operations that must be
	// atomic (e.g. completing a task and seeding its successor).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClientByID fetches a client for grant validation. Primary-key
	// lookup, O(1) amortized.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// CreateClient registers a client. The secret must already be hashed.
	CreateClient(ctx context.Context, c domain.Client) error

	// ListClients returns all clients, newest first.
	ListClients(ctx context.Context) ([]domain.Client, error)

	// DeleteClient removes a client registration.
	DeleteClient(ctx context.Context, clientID string) error

	// IsEmpty reports whether the registry holds no clients (seed check).
	IsEmpty(ctx context.Context) (bool, error)
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during the password grant.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// IsEmpty reports whether there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked, used during rotation and revocation.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Processes interface {
	// CreateProcess appends a new instance. Creation is independent per
	// call; there is no shared mutable state beyond the append.
	CreateProcess(ctx context.Context, p domain.ProcessInstance) error

	// GetProcessByID fetches an instance.
	GetProcessByID(ctx context.Context, id string) (domain.ProcessInstance, error)

	// UpdateProcessStatus transitions running -> completed.
	UpdateProcessStatus(ctx context.Context, id string, status domain.ProcessStatus) error
}

type Tasks interface {
	// CreateTask inserts a task seeded by a process start or a step
	// transition.
	CreateTask(ctx context.Context, t domain.Task) error

	// GetTaskByID fetches a task.
	GetTaskByID(ctx context.Context, id string) (domain.Task, error)

	// ListByAssignee returns tasks claimed by userID.
	ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error)

	// ListByCandidateUser returns open, unclaimed tasks where userID is the
	// candidate user.
	ListByCandidateUser(ctx context.Context, userID string) ([]domain.Task, error)

	// ListByCandidateGroup returns open, unclaimed tasks routed to the role.
	ListByCandidateGroup(ctx context.Context, role string) ([]domain.Task, error)

	// Claim atomically transitions open -> claimed iff the task has no
	// other assignee. It is a single conditional UPDATE so two concurrent
	// claims can never both win. Re-claiming with the same user succeeds.
	// Returns ErrNotFound or ErrAlreadyClaimed on failure.
	Claim(ctx context.Context, taskID, userID string) error

	// Unclaim transitions claimed -> open for the current assignee only.
	Unclaim(ctx context.Context, taskID, userID string) error

	// CompleteTask transitions claimed -> completed. Completed tasks are
	// immutable afterwards.
	CompleteTask(ctx context.Context, taskID string) error
}
