package service

import (
	"context"
	"errors"

	"github.com/caseflow/caseflow/internal/coordinator/store"
)

// Authentication failures. They all map to an unauthorized response; the
// distinct sentinels exist so the token endpoint can emit the right OAuth2
// error code.
var (
	ErrInvalidClient    = errors.New("service: invalid client credentials")
	ErrInvalidGrant     = errors.New("service: invalid grant")
	ErrUnsupportedGrant = errors.New("service: unsupported grant type")
	ErrInvalidScope     = errors.New("service: requested scope exceeds the grant")
)

// Domain failures.
var (
	ErrNotFound       = errors.New("service: not found")
	ErrAlreadyClaimed = errors.New("service: task claimed by another user")
	ErrNotClaimed     = errors.New("service: task is not claimed by the caller")
	ErrInvalidState   = errors.New("service: operation not valid in the current state")
)

// Infrastructure failures. The boundary may retry idempotent reads on these;
// state-changing operations are never retried.
var (
	ErrTimeout     = errors.New("service: backing store timed out")
	ErrUnavailable = errors.New("service: backing store unavailable")
)

// mapStoreErr translates storage sentinels and context failures into the
// service taxonomy so callers never depend on the driver package. Errors
// already in the taxonomy pass through unchanged.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isServiceErr(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyClaimed):
		return ErrAlreadyClaimed
	case errors.Is(err, store.ErrNotClaimed):
		return ErrNotClaimed
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Join(ErrUnavailable, err)
	}
}

func isServiceErr(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidClient, ErrInvalidGrant, ErrUnsupportedGrant, ErrInvalidScope,
		ErrNotFound, ErrAlreadyClaimed, ErrNotClaimed, ErrInvalidState,
		ErrTimeout, ErrUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
