package unitypackage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/unitypackage/internal/envelope"
	"github.com/meigma/unitypackage/internal/fileio"
	"github.com/meigma/unitypackage/internal/layout"
)

// InspectEntry describes one identifier found in a package.
type InspectEntry struct {
	// ID is the asset identifier.
	ID string

	// Path is the archived pathname, or empty for orphaned content.
	Path string

	// HasAsset and AssetSize describe the asset member.
	HasAsset  bool
	AssetSize int64

	// HasMeta and MetaSize describe the sidecar member.
	HasMeta  bool
	MetaSize int64
}

// IsDir reports whether the entry restores as a directory.
func (e *InspectEntry) IsDir() bool {
	return e.HasMeta && !e.HasAsset
}

// Empty reports whether the entry has a pathname but neither an asset nor
// a sidecar. Unpack creates nothing for it.
func (e *InspectEntry) Empty() bool {
	return e.Path != "" && !e.HasAsset && !e.HasMeta
}

// Orphaned reports whether the entry has no pathname and would be
// skipped by Unpack.
func (e *InspectEntry) Orphaned() bool {
	return e.Path == ""
}

// InspectResult contains the listing of a package without its content.
type InspectResult struct {
	entries []InspectEntry
	size    uint64
	tarSize uint64
	digest  digest.Digest

	// Lazy computed stats
	statsOnce      sync.Once
	files          int
	directories    int
	empty          int
	orphans        []string
	totalAssetSize uint64
}

// Entries returns the entries sorted by identifier.
func (r *InspectResult) Entries() []InspectEntry {
	return r.entries
}

// Digest returns the SHA-256 digest of the package file.
func (r *InspectResult) Digest() digest.Digest {
	return r.digest
}

// Size returns the size of the package file.
func (r *InspectResult) Size() uint64 {
	return r.size
}

// TarSize returns the size of the decoded tar stream.
func (r *InspectResult) TarSize() uint64 {
	return r.tarSize
}

// FileCount returns the number of entries that restore as files.
func (r *InspectResult) FileCount() int {
	r.computeStats()
	return r.files
}

// DirectoryCount returns the number of entries that restore as directories.
func (r *InspectResult) DirectoryCount() int {
	r.computeStats()
	return r.directories
}

// EmptyCount returns the number of pathnames with no content to restore.
func (r *InspectResult) EmptyCount() int {
	r.computeStats()
	return r.empty
}

// Orphans returns the identifiers that have content but no pathname.
func (r *InspectResult) Orphans() []string {
	r.computeStats()
	return r.orphans
}

// TotalAssetSize returns the sum of all asset sizes.
func (r *InspectResult) TotalAssetSize() uint64 {
	r.computeStats()
	return r.totalAssetSize
}

// CompressionRatio returns the package size divided by the tar size.
// Returns 0 for an empty tar stream.
func (r *InspectResult) CompressionRatio() float64 {
	if r.tarSize == 0 {
		return 0
	}
	return float64(r.size) / float64(r.tarSize)
}

func (r *InspectResult) computeStats() {
	r.statsOnce.Do(func() {
		for i := range r.entries {
			e := &r.entries[i]
			switch {
			case e.Orphaned():
				r.orphans = append(r.orphans, e.ID)
			case e.Empty():
				r.empty++
			case e.IsDir():
				r.directories++
			default:
				r.files++
			}
			if e.HasAsset {
				r.totalAssetSize += uint64(e.AssetSize) //nolint:gosec // tar sizes are non-negative
			}
		}
	})
}

// InspectOption configures Inspect.
type InspectOption func(*inspectConfig)

type inspectConfig struct {
	logger *slog.Logger
}

// InspectWithLogger sets the logger for inspect operations.
func InspectWithLogger(l *slog.Logger) InspectOption {
	return func(c *inspectConfig) {
		c.logger = l
	}
}

// Inspect lists the package at source without extracting it.
//
// The whole envelope is read, so a corrupt trailer is reported as an
// error even though no content is written.
func Inspect(ctx context.Context, source string, opts ...InspectOption) (*InspectResult, error) {
	var cfg inspectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}
	f, err := os.Open(source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveRead, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, source)
	}

	res, err := inspect(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveRead, err)
	}
	logger.Debug("inspected package", "path", source, "entries", len(res.entries), "digest", res.digest)
	return res, nil
}

func inspect(ctx context.Context, r io.Reader) (*InspectResult, error) {
	digester := digest.Canonical.Digester()
	var raw, tarBytes fileio.Meter
	tee := io.TeeReader(raw.Reader(r), digester.Hash())

	zr, err := envelope.NewReader(tee)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	tr := tarBytes.Reader(zr)
	byID := make(map[string]*InspectEntry)
	get := func(id string) *InspectEntry {
		e := byID[id]
		if e == nil {
			e = &InspectEntry{ID: id}
			byID[id] = e
		}
		return e
	}

	err = layout.Scan(ctx, tr, func(m layout.Member, body io.Reader) error {
		e := get(m.ID)
		switch m.Kind {
		case layout.KindPathname:
			p, err := layout.ReadPathname(body)
			if err != nil {
				return fmt.Errorf("%s: %w", layout.Name(m.ID, m.Kind), err)
			}
			if e.Path != "" {
				return fmt.Errorf("duplicate pathname for %s", m.ID)
			}
			e.Path = p
		case layout.KindAsset:
			e.HasAsset, e.AssetSize = true, m.Size
		case layout.KindMeta:
			e.HasMeta, e.MetaSize = true, m.Size
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reading to EOF verifies the trailer.
	if _, err := io.Copy(io.Discard, tr); err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	entries := make([]InspectEntry, 0, len(byID))
	for _, e := range byID {
		entries = append(entries, *e)
	}
	slices.SortFunc(entries, func(a, b InspectEntry) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return &InspectResult{
		entries: entries,
		size:    raw.Bytes(),
		tarSize: tarBytes.Bytes(),
		digest:  digester.Digest(),
	}, nil
}
