package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meigma/unitypackage"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"usage", usageError(errors.New("bad")), ExitBadArguments},
		{"pack source missing", &opError{err: unitypackage.ErrSourceNotFound}, ExitSourceNotFound},
		{"unpack archive missing", &opError{unpack: true, err: unitypackage.ErrSourceNotFound}, ExitFileNotFound},
		{"destination exists", &opError{err: unitypackage.ErrDestinationExists}, ExitDestinationExists},
		{"empty", &opError{err: unitypackage.ErrEmptySource}, ExitEmptySource},
		{"legacy empty", &opError{legacy: true, err: unitypackage.ErrEmptySource}, ExitFileNotFound},
		{"legacy source missing", &opError{legacy: true, err: unitypackage.ErrSourceNotFound}, ExitSourceNotFound},
		{"bad path", &opError{err: unitypackage.ErrInvalidSourcePath}, ExitBadPath},
		{"write failure", &opError{err: fmt.Errorf("%w: disk full", unitypackage.ErrArchiveWrite)}, ExitIOFailure},
		{"read failure", &opError{unpack: true, err: unitypackage.ErrArchiveRead}, ExitIOFailure},
		{"unknown", errors.New("boom"), ExitIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
