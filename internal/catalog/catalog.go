// Package catalog discovers the assets under a source directory and pairs
// each one with the identifier from its sidecar.
//
// Traversal is two-phase. Every sidecar-declared identifier is registered
// while walking the tree; assets without a sidecar are deferred and only
// receive generated identifiers once the walk is complete, so a generated
// identifier can never shadow one that appears later in the tree.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/unitypackage/internal/guid"
	"github.com/meigma/unitypackage/internal/pathutil"
	"github.com/meigma/unitypackage/internal/platform"
	"github.com/meigma/unitypackage/internal/sidecar"
)

// ErrEmpty is returned when traversal yields no entries.
var ErrEmpty = errors.New("catalog: no eligible entries")

// Entry is one asset or directory to be archived.
type Entry struct {
	// ID is the asset identifier.
	ID string

	// Path is the archived pathname, including any root prefix.
	Path string

	// MetaFile is the root-relative path of the existing sidecar, if any.
	MetaFile string

	// Meta holds a synthesized sidecar for assets that had none.
	Meta []byte

	// AssetFile is the root-relative path of the asset content.
	// It is empty for directory entries.
	AssetFile string
}

// IsDir reports whether the entry describes a directory.
func (e *Entry) IsDir() bool {
	return e.AssetFile == ""
}

// HasMeta reports whether the entry carries sidecar content.
func (e *Entry) HasMeta() bool {
	return e.MetaFile != "" || e.Meta != nil
}

// Stats summarizes a Build.
type Stats struct {
	Directories int
	Assets      int
	Generated   int

	// Malformed counts sidecars whose identifier line could not be parsed.
	Malformed int

	// Duplicates counts sidecars that repeated an already registered identifier.
	Duplicates int
}

type config struct {
	prefix   string
	registry *guid.Registry
	logger   *slog.Logger
}

// Option configures Build.
type Option func(*config)

// WithRootPrefix prepends prefix (such as "Assets/") to every archived path.
func WithRootPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithRegistry supplies the identifier registry. Build creates one if unset.
func WithRegistry(r *guid.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithLogger sets the logger for skipped and generated entries.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// builder holds the state of one Build call.
type builder struct {
	cfg      config
	root     *os.Root
	fsys     fs.FS
	entries  []Entry
	deferred []string
	stats    Stats
}

// Build walks dir inside root and returns the catalog sorted by identifier.
//
// dir is a slash-separated path relative to root and becomes the first
// element of every archived path (after the root prefix). Hidden entries
// (names starting with ".") are skipped along with their subtrees, and
// only regular files and directories are considered.
func Build(ctx context.Context, root *os.Root, dir string, opts ...Option) ([]Entry, Stats, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = guid.NewRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	b := &builder{cfg: cfg, root: root, fsys: root.FS()}
	if err := b.visitDir(ctx, dir); err != nil {
		return nil, b.stats, err
	}
	if err := b.assignDeferred(ctx); err != nil {
		return nil, b.stats, err
	}
	if len(b.entries) == 0 {
		return nil, b.stats, ErrEmpty
	}

	slices.SortFunc(b.entries, func(a, b Entry) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return b.entries, b.stats, nil
}

func (b *builder) visitDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pathutil.IsHidden(dir) {
		return nil
	}

	metaFile := sidecar.PathFor(dir)
	if b.sidecarExists(metaFile) {
		if id, ok := sidecar.Read(b.fsys, metaFile); ok {
			b.add(Entry{ID: id, Path: b.archived(dir), MetaFile: metaFile})
		} else {
			b.stats.Malformed++
			b.cfg.logger.Debug("skipped directory with malformed sidecar", "path", dir)
		}
	}

	children, err := fs.ReadDir(b.fsys, dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}

	var subdirs []string
	for _, d := range children {
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := path.Join(dir, name)
		switch {
		case d.IsDir():
			subdirs = append(subdirs, p)
		case d.Type().IsRegular():
			if sidecar.IsSidecar(name) {
				continue
			}
			b.visitFile(p)
		default:
			b.cfg.logger.Debug("skipped non-regular file", "path", p)
		}
	}

	for _, sub := range subdirs {
		if err := b.visitDir(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) visitFile(p string) {
	metaFile := sidecar.PathFor(p)
	if !b.sidecarExists(metaFile) {
		b.deferred = append(b.deferred, p)
		return
	}
	id, ok := sidecar.Read(b.fsys, metaFile)
	if !ok {
		b.stats.Malformed++
		b.cfg.logger.Debug("skipped asset with malformed sidecar", "path", p)
		return
	}
	b.add(Entry{ID: id, Path: b.archived(p), MetaFile: metaFile, AssetFile: p})
}

// assignDeferred gives every sidecar-less asset a generated identifier.
// It must run after the walk so all declared identifiers are registered.
func (b *builder) assignDeferred(ctx context.Context) error {
	for _, p := range b.deferred {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := b.cfg.registry.Generate()
		if err != nil {
			return fmt.Errorf("assign identifier to %s: %w", p, err)
		}
		meta, err := sidecar.Synthesize(id)
		if err != nil {
			return err
		}
		b.entries = append(b.entries, Entry{ID: id, Path: b.archived(p), Meta: meta, AssetFile: p})
		b.stats.Assets++
		b.stats.Generated++
		b.cfg.logger.Debug("generated identifier", "path", p, "guid", id)
	}
	b.deferred = nil
	return nil
}

// add registers a sidecar-declared entry; the first occurrence of an
// identifier wins.
func (b *builder) add(e Entry) {
	if !b.cfg.registry.Register(e.ID) {
		b.stats.Duplicates++
		b.cfg.logger.Warn("skipped duplicate identifier", "path", e.Path, "guid", e.ID)
		return
	}
	b.entries = append(b.entries, e)
	if e.IsDir() {
		b.stats.Directories++
	} else {
		b.stats.Assets++
	}
}

// sidecarExists reports whether name is a regular file. A symlinked
// sidecar is treated as missing, like a symlinked asset.
func (b *builder) sidecarExists(name string) bool {
	return platform.IsRegular(b.root, filepath.FromSlash(name))
}

func (b *builder) archived(p string) string {
	return pathutil.WithPrefix(b.cfg.prefix, p)
}
