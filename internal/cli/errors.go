package cli

import (
	"errors"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitStorage      = 3
	ExitAdvisory     = 4
)

// ExitError carries an explicit exit code up to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFor maps an error returned by a command to the process exit code.
// An ExitError anywhere in the chain wins over the sentinel mapping.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, footprint.ErrInvalidInput),
		errors.Is(err, emissions.ErrUnknownKey),
		errors.Is(err, emissions.ErrInvalidFactorsFile),
		errors.Is(err, advisor.ErrInvalidRequest),
		errors.Is(err, greenops.ErrInvalidReduction),
		errors.Is(err, greenops.ErrNegativeValue),
		errors.Is(err, greenops.ErrInvalidUnit),
		errors.Is(err, config.ErrInvalidConfig):
		return ExitInvalidInput
	case errors.Is(err, history.ErrStorageUnavailable),
		errors.Is(err, history.ErrStoreCorrupted):
		return ExitStorage
	case errors.Is(err, advisor.ErrAdvisoryUnavailable):
		return ExitAdvisory
	default:
		return ExitFailure
	}
}
