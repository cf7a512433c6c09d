package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrSymlink is returned when the named file is a symbolic link.
	ErrSymlink = errors.New("symbolic links not supported")

	// ErrNotRegular is returned for devices, sockets, pipes and directories.
	ErrNotRegular = errors.New("not a regular file")

	// ErrChanged is returned when the file was replaced between the
	// link check and the open.
	ErrChanged = errors.New("file changed while opening")
)

// IsRegular reports whether name under root is a regular file and not a
// symbolic link to one.
func IsRegular(root *os.Root, name string) bool {
	info, err := root.Lstat(name)
	return err == nil && info.Mode().IsRegular()
}

// OpenRegular opens name under root for reading. It refuses symbolic links
// and anything that is not a regular file, and returns the info of the
// opened file so callers archive the size they will actually read.
//
// os.Root resolves links itself, so O_NOFOLLOW cannot be relied on. The
// file is checked with Lstat first and compared with the opened handle
// afterwards.
func OpenRegular(root *os.Root, name string) (*os.File, fs.FileInfo, error) {
	before, err := root.Lstat(name)
	if err != nil {
		return nil, nil, err
	}
	if err := checkRegular(before); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	f, err := root.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() || !os.SameFile(before, info) {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, ErrChanged)
	}
	return f, info, nil
}

func checkRegular(info fs.FileInfo) error {
	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return ErrSymlink
	case !mode.IsRegular():
		return ErrNotRegular
	}
	return nil
}
