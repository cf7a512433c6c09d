package unitypackage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/unitypackage/internal/catalog"
	"github.com/meigma/unitypackage/internal/envelope"
	"github.com/meigma/unitypackage/internal/fileio"
	"github.com/meigma/unitypackage/internal/guid"
	"github.com/meigma/unitypackage/internal/layout"
	"github.com/meigma/unitypackage/internal/platform"
	"github.com/meigma/unitypackage/internal/staging"
)

// PackResult describes a package written by Pack.
type PackResult struct {
	// Path is the absolute path of the written package.
	Path string

	// Entries is the number of catalog entries archived.
	Entries int

	// Directories and Assets split Entries by kind.
	Directories int
	Assets      int

	// Generated counts assets that received a new identifier and sidecar.
	Generated int

	// TarSize is the size of the uncompressed tar stream.
	TarSize uint64

	// Size is the size of the package file.
	Size uint64

	// Digest is the SHA-256 digest of the package file.
	Digest digest.Digest
}

// Pack archives the directory tree at source into a package file at
// destination.
//
// Archived pathnames are relative to the parent of source, so the name of
// source itself is their first element, preceded by the root prefix if
// one is set. Assets without a sidecar receive a generated identifier and
// a synthesized sidecar in the archive; the source tree is never modified.
//
// The package is written to a temporary file beside destination and
// renamed into place on success, so a failed Pack leaves no output.
func Pack(ctx context.Context, source, destination string, opts ...PackOption) (*PackResult, error) {
	cfg := defaultPackConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &packer{cfg: cfg}
	return p.pack(ctx, source, destination)
}

type packer struct {
	cfg packConfig
}

func (p *packer) log() *slog.Logger {
	if p.cfg.logger != nil {
		return p.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}

func (p *packer) pack(ctx context.Context, source, destination string) (*PackResult, error) {
	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSourcePath, err)
	}
	destination, err = filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	if err := p.validate(source, destination); err != nil {
		return nil, err
	}

	container := filepath.Dir(source)
	root, err := os.OpenRoot(container)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidSourcePath, container, err)
	}
	defer root.Close()

	p.log().Info("packing", "source", source, "destination", destination, "root", p.cfg.prefix.String())

	report(p.cfg.progress, ProgressEvent{Stage: StageCataloging})
	registry := guid.NewRegistry()
	if p.cfg.random != nil {
		registry = guid.NewRegistry(guid.WithRandom(p.cfg.random))
	}
	entries, stats, err := catalog.Build(ctx, root, filepath.Base(source),
		catalog.WithRootPrefix(string(p.cfg.prefix)),
		catalog.WithRegistry(registry),
		catalog.WithLogger(p.log()),
	)
	if errors.Is(err, catalog.ErrEmpty) {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: catalog %s: %w", ErrArchiveWrite, source, err)
	}
	report(p.cfg.progress, ProgressEvent{Stage: StageCataloging, EntriesDone: len(entries), EntriesTotal: len(entries)})
	p.log().Debug("cataloged source",
		"entries", len(entries),
		"directories", stats.Directories,
		"assets", stats.Assets,
		"generated", stats.Generated,
		"malformed", stats.Malformed,
		"duplicates", stats.Duplicates)

	mgr := staging.New(staging.WithBaseDir(p.cfg.tempDir), staging.WithLogger(p.log()))
	defer func() {
		if err := mgr.ReleaseAll(); err != nil {
			p.log().Warn("release staging", "error", err)
		}
	}()

	area, err := mgr.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}
	tarPath := area.Join(envelope.Name)
	tarSize, err := p.writeTar(ctx, root, entries, tarPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	size, dgst, err := p.writeEnvelope(ctx, tarPath, tarSize, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	p.log().Info("packed", "path", destination, "entries", len(entries), "size", size, "digest", dgst)
	return &PackResult{
		Path:        destination,
		Entries:     len(entries),
		Directories: stats.Directories,
		Assets:      stats.Assets,
		Generated:   stats.Generated,
		TarSize:     tarSize,
		Size:        size,
		Digest:      dgst,
	}, nil
}

// validate checks the preconditions that map to distinct error kinds.
func (p *packer) validate(source, destination string) error {
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if _, err := os.Lstat(destination); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destination)
	}
	children, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrArchiveWrite, source, err)
	}
	if len(children) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySource, source)
	}
	if filepath.Dir(source) == source {
		return fmt.Errorf("%w: %s", ErrInvalidSourcePath, source)
	}
	return nil
}

// writeTar writes the catalog to a tar file at path and returns its size.
func (p *packer) writeTar(ctx context.Context, root *os.Root, entries []catalog.Entry, path string) (uint64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", envelope.Name, err)
	}
	defer f.Close()

	var written fileio.Meter
	bw := bufio.NewWriterSize(written.Writer(f), 64*1024)
	tw := layout.NewWriter(bw)
	for i := range entries {
		e := &entries[i]
		if err := p.writeEntry(ctx, tw, root, e); err != nil {
			return 0, err
		}
		report(p.cfg.progress, ProgressEvent{
			Stage:        StageArchiving,
			Path:         e.Path,
			EntriesDone:  i + 1,
			EntriesTotal: len(entries),
		})
	}
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("close tar: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush tar: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", envelope.Name, err)
	}
	return written.Bytes(), nil
}

func (p *packer) writeEntry(ctx context.Context, tw *layout.Writer, root *os.Root, e *catalog.Entry) error {
	if err := tw.WriteDir(e.ID); err != nil {
		return fmt.Errorf("write %s: %w", layout.DirName(e.ID), err)
	}
	if !e.IsDir() {
		if err := copyMember(ctx, tw, root, e.ID, layout.KindAsset, e.AssetFile); err != nil {
			return err
		}
	}
	switch {
	case e.MetaFile != "":
		if err := copyMember(ctx, tw, root, e.ID, layout.KindMeta, e.MetaFile); err != nil {
			return err
		}
	case e.Meta != nil:
		if err := tw.WriteBytes(ctx, e.ID, layout.KindMeta, e.Meta); err != nil {
			return err
		}
	}
	return tw.WriteBytes(ctx, e.ID, layout.KindPathname, []byte(e.Path))
}

// copyMember archives the file at name (relative to root) as id/kind.
func copyMember(ctx context.Context, tw *layout.Writer, root *os.Root, id string, kind layout.Kind, name string) error {
	f, info, err := platform.OpenRegular(root, filepath.FromSlash(name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return tw.WriteMember(ctx, id, kind, f, info.Size())
}

// writeEnvelope compresses the tar file into destination and returns the
// package size and digest.
func (p *packer) writeEnvelope(ctx context.Context, tarPath string, tarSize uint64, destination string) (uint64, digest.Digest, error) {
	src, err := os.Open(tarPath)
	if err != nil {
		return 0, "", fmt.Errorf("open %s: %w", envelope.Name, err)
	}
	defer src.Close()

	report(p.cfg.progress, ProgressEvent{Stage: StageCompressing, BytesTotal: tarSize})

	digester := digest.Canonical.Digester()
	var stats envelope.Stats
	err = writeFileAtomic(destination, func(w io.Writer) error {
		var werr error
		stats, werr = envelope.Write(ctx, io.MultiWriter(w, digester.Hash()), src, envelope.WithLevel(p.cfg.level))
		return werr
	})
	if err != nil {
		return 0, "", fmt.Errorf("write %s: %w", destination, err)
	}

	report(p.cfg.progress, ProgressEvent{Stage: StageCompressing, BytesDone: stats.Size, BytesTotal: tarSize})
	return stats.Written, digester.Digest(), nil
}
