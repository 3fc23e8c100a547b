package waitmux

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by Wait when the deadline elapsed with nothing ready.
	ErrTimeout = errors.New("wait timed out")
	// ErrNotInitialized is returned when an operation requires an initialized instance.
	ErrNotInitialized = errors.New("not initialized")
	// ErrAlreadyInitialized is returned when init is called on an initialized instance.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrWaitSetFull is returned when adding an entity beyond the allocated slots.
	ErrWaitSetFull = errors.New("wait set full")
	// ErrWaitSetEmpty is returned when waiting on a wait set with no non-nil slots.
	ErrWaitSetEmpty = errors.New("wait set empty")
	// ErrInvalidArgument is returned when a nil or invalid handle is passed in.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPruned is returned when adding to a wait set that has not been cleared
	// since its last wait cycle.
	ErrPruned = errors.New("wait set pruned")
)

// Forever blocks a wait indefinitely. Any negative timeout means no deadline;
// a timeout of zero polls current readiness without blocking.
const Forever time.Duration = -1
