package domain

import "errors"

// Error kinds shared by every aggregate. Package-level errors in the domain
// subpackages wrap one of these so callers can match on the kind alone.
var (
	ErrNotFound                = errors.New("not found")
	ErrNotAuthorized           = errors.New("not authorized")
	ErrInvalidState            = errors.New("invalid state")
	ErrAlreadyExists           = errors.New("already exists")
	ErrConflict                = errors.New("concurrent modification")
	ErrNoPractitionerAvailable = errors.New("no practitioner available")
	ErrUnavailable             = errors.New("storage unavailable")
)

// InfraError carries an unexpected storage or directory failure.
type InfraError struct {
	Err error
}

func (e *InfraError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

func (e *InfraError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable marks err as an infrastructure failure. Nil stays nil and errors
// that already carry a domain kind are returned unchanged.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrNotFound, ErrNotAuthorized, ErrInvalidState, ErrAlreadyExists,
		ErrConflict, ErrNoPractitionerAvailable, ErrUnavailable,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &InfraError{Err: err}
}
