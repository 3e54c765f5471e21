package bulk

import "errors"

// ErrSkipped marks an item that was already in the target state. It is a
// distinct success case, never counted as a failure.
var ErrSkipped = errors.New("item already in target state")

// Skip wraps ErrSkipped with the given reason.
func Skip(reason string) error {
	if reason == "" {
		return ErrSkipped
	}
	return &skipError{reason: reason}
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func (e *skipError) Is(target error) bool { return target == ErrSkipped }

// IsSkipped reports whether err marks a skipped item.
func IsSkipped(err error) bool {
	return errors.Is(err, ErrSkipped)
}
