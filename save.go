package unitypackage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeFileAtomic streams fn's output to a temp file beside target, then
// renames it into place with mode filePerm. target is never left partially
// written.
func writeFileAtomic(target string, fn func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".unitypackage-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := fn(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush: %w", err)
	}
	// CreateTemp uses 0600; packages are meant to be shared.
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
