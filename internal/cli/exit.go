package cli

import (
	"errors"

	"github.com/meigma/unitypackage"
)

// Process exit codes.
//
// ExitFileNotFound covers a missing package on unpack and inspect, and an
// empty source directory packed through the legacy command. The pack
// command reports an empty source as ExitEmptySource.
const (
	ExitOK                = 0x00
	ExitFileNotFound      = 0x02
	ExitSourceNotFound    = 0x03
	ExitEmptySource       = 0x12
	ExitIOFailure         = 0x52
	ExitBadArguments      = 0xA0
	ExitBadPath           = 0xA1
	ExitDestinationExists = 0xB7
)

// errUsage marks errors caused by invalid command-line input.
var errUsage = errors.New("invalid arguments")

// usageError wraps err so ExitCode reports ExitBadArguments.
func usageError(err error) error {
	return errors.Join(errUsage, err)
}

// opError records which operation failed, and through which command, so
// a missing or empty source maps to the right code.
type opError struct {
	unpack bool
	legacy bool
	err    error
}

func (e *opError) Error() string { return e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var op *opError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		return ExitBadArguments
	case errors.Is(err, unitypackage.ErrSourceNotFound):
		if errors.As(err, &op) && op.unpack {
			return ExitFileNotFound
		}
		return ExitSourceNotFound
	case errors.Is(err, unitypackage.ErrDestinationExists):
		return ExitDestinationExists
	case errors.Is(err, unitypackage.ErrEmptySource):
		if errors.As(err, &op) && op.legacy {
			return ExitFileNotFound
		}
		return ExitEmptySource
	case errors.Is(err, unitypackage.ErrInvalidSourcePath):
		return ExitBadPath
	default:
		return ExitIOFailure
	}
}
