// Package staging hands out scratch directories that are removed, with all
// their contents, when the owning operation ends.
//
// A Manager is scoped to one pack or unpack call. Callers defer
// ReleaseAll immediately after creating it so every area is removed on
// every exit path.
package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultPattern is the os.MkdirTemp pattern for new areas.
const DefaultPattern = "unitypackage-*"

// Manager creates and tracks staging areas.
// It is not safe for concurrent use.
type Manager struct {
	baseDir string
	pattern string
	logger  *slog.Logger
	areas   []*Area
}

// Option configures a Manager.
type Option func(*Manager)

// WithBaseDir sets the parent directory for new areas.
// Defaults to os.TempDir.
func WithBaseDir(dir string) Option {
	return func(m *Manager) {
		m.baseDir = dir
	}
}

// WithPattern sets the os.MkdirTemp pattern for new areas.
func WithPattern(pattern string) Option {
	return func(m *Manager) {
		m.pattern = pattern
	}
}

// WithLogger sets the logger used for acquire and release events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{pattern: DefaultPattern}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// Acquire creates a new, uniquely named area.
func (m *Manager) Acquire() (*Area, error) {
	dir, err := os.MkdirTemp(m.baseDir, m.pattern)
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("open staging directory: %w", err)
	}

	a := &Area{path: dir, root: root, logger: m.logger}
	m.areas = append(m.areas, a)
	m.logger.Debug("acquired staging area", "path", dir)
	return a, nil
}

// ReleaseAll releases every area acquired from m, newest first.
// It is safe to call more than once.
func (m *Manager) ReleaseAll() error {
	var errs []error
	for i := len(m.areas) - 1; i >= 0; i-- {
		if err := m.areas[i].Release(); err != nil {
			errs = append(errs, err)
		}
	}
	m.areas = nil
	return errors.Join(errs...)
}

// Area is an exclusively owned scratch directory.
type Area struct {
	path     string
	root     *os.Root
	logger   *slog.Logger
	released bool
}

// Path returns the absolute directory path.
func (a *Area) Path() string {
	return a.path
}

// Root returns a handle confined to the area.
func (a *Area) Root() *os.Root {
	return a.root
}

// Join joins elem onto the area path.
func (a *Area) Join(elem ...string) string {
	return filepath.Join(append([]string{a.path}, elem...)...)
}

// Release closes the area handle and removes the directory recursively.
// Releasing an area twice is a no-op.
func (a *Area) Release() error {
	if a.released {
		return nil
	}
	a.released = true

	closeErr := a.root.Close()
	if err := os.RemoveAll(a.path); err != nil {
		return fmt.Errorf("remove staging directory %s: %w", a.path, err)
	}
	a.logger.Debug("released staging area", "path", a.path)
	return closeErr
}
