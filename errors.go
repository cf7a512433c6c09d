package unitypackage

import "errors"

// Sentinel errors returned by Pack, Unpack, and Inspect. Failures during
// archive construction or parsing wrap ErrArchiveWrite or ErrArchiveRead
// together with the underlying cause, so both match with errors.Is.
var (
	// ErrSourceNotFound is returned when the source directory (Pack) or
	// package file (Unpack, Inspect) does not exist.
	ErrSourceNotFound = errors.New("unitypackage: source not found")

	// ErrDestinationExists is returned when the package file already exists
	// (Pack) or the destination directory exists and is not empty (Unpack).
	ErrDestinationExists = errors.New("unitypackage: destination already exists")

	// ErrEmptySource is returned when the source directory holds nothing to package.
	ErrEmptySource = errors.New("unitypackage: no files found to package")

	// ErrInvalidSourcePath is returned when the source directory has no parent directory.
	ErrInvalidSourcePath = errors.New("unitypackage: source has no parent directory")

	// ErrArchiveWrite is returned when the package cannot be built.
	ErrArchiveWrite = errors.New("unitypackage: cannot write package")

	// ErrArchiveRead is returned when the package cannot be decoded or extracted.
	ErrArchiveRead = errors.New("unitypackage: cannot read package")
)
