package gallery

import "errors"

// Sentinel errors for the outcomes callers branch on. Everything else is an
// upstream failure and is wrapped with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotFound signals that an object or record does not exist.
	// It is a distinguishable outcome, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals that a record for the identifier already exists.
	// Upload paths resolve it deterministically in favor of the first writer.
	ErrConflict = errors.New("already exists")

	// ErrInvalidInput signals malformed caller input: a bad range header,
	// an out-of-domain part number, an unrecognized compression level.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOversize signals that an object exceeds a configured ceiling.
	ErrOversize = errors.New("exceeds size limit")

	// ErrUnsatisfiableRange signals a range request whose window falls
	// outside the object. The server reports the true size alongside it.
	ErrUnsatisfiableRange = errors.New("range not satisfiable")
)

// IsNotFound reports whether err resolves to ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err resolves to ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
