package unitypackage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/meigma/unitypackage/internal/envelope"
	"github.com/meigma/unitypackage/internal/fileio"
	"github.com/meigma/unitypackage/internal/layout"
	"github.com/meigma/unitypackage/internal/pathutil"
	"github.com/meigma/unitypackage/internal/sidecar"
	"github.com/meigma/unitypackage/internal/staging"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// UnpackResult describes a tree restored by Unpack.
type UnpackResult struct {
	// Path is the absolute destination directory.
	Path string

	// Files is the number of assets written.
	Files int

	// Directories is the number of directory entries restored.
	Directories int

	// Orphans counts staged identifiers that had no pathname member.
	Orphans int

	// TarSize is the size of the decoded tar stream.
	TarSize uint64
}

// Unpack restores the tree stored in the package at source under
// destination.
//
// Members may appear in any order; content is staged per identifier and
// placed only after the whole archive has been read. Unless
// UnpackWithKeepRootPrefix(true) is given, the first element of every
// pathname (such as "Assets") is dropped.
//
// destination must not exist or must be an empty directory. On failure
// everything written under destination is removed.
func Unpack(ctx context.Context, source, destination string, opts ...UnpackOption) (*UnpackResult, error) {
	var cfg unpackConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	u := &unpacker{cfg: cfg}
	return u.unpack(ctx, source, destination)
}

type unpacker struct {
	cfg unpackConfig
}

func (u *unpacker) log() *slog.Logger {
	if u.cfg.logger != nil {
		return u.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}

// staged tracks which members were extracted for an identifier.
type staged struct {
	asset bool
	meta  bool
}

// scanState is the result of reading the tar stream.
type scanState struct {
	paths   map[string]string
	content map[string]*staged
}

func (u *unpacker) unpack(ctx context.Context, source, destination string) (res *UnpackResult, err error) {
	source, err = filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}
	destination, err = filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveRead, err)
	}

	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	existed, err := destinationState(destination)
	if err != nil {
		return nil, err
	}

	u.log().Info("unpacking", "source", source, "destination", destination, "keep_root", u.cfg.keepRoot)

	mgr := staging.New(staging.WithBaseDir(u.cfg.tempDir), staging.WithLogger(u.log()))
	defer func() {
		if rerr := mgr.ReleaseAll(); rerr != nil {
			u.log().Warn("release staging", "error", rerr)
		}
	}()
	defer func() {
		if err != nil {
			u.rollback(destination, existed)
			err = fmt.Errorf("%w: %w", ErrArchiveRead, err)
		}
	}()

	tarArea, err := mgr.Acquire()
	if err != nil {
		return nil, err
	}
	tarPath := tarArea.Join(envelope.Name)
	tarSize, err := u.decode(ctx, source, tarPath)
	if err != nil {
		return nil, err
	}

	contentArea, err := mgr.Acquire()
	if err != nil {
		return nil, err
	}
	state, err := u.scan(ctx, tarPath, contentArea.Root())
	if err != nil {
		return nil, err
	}

	res, err = u.resolve(ctx, contentArea.Root(), state, destination)
	if err != nil {
		return nil, err
	}
	res.TarSize = tarSize

	u.log().Info("unpacked", "path", destination, "files", res.Files, "directories", res.Directories, "orphans", res.Orphans)
	return res, nil
}

// destinationState reports whether destination already exists. A file or
// a non-empty directory is rejected.
func destinationState(destination string) (bool, error) {
	info, err := os.Stat(destination)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", ErrArchiveRead, destination, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s", ErrDestinationExists, destination)
	}
	children, err := os.ReadDir(destination)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", ErrArchiveRead, destination, err)
	}
	if len(children) > 0 {
		return false, fmt.Errorf("%w: %s is not empty", ErrDestinationExists, destination)
	}
	return true, nil
}

// decode writes the tar stream inside the package at source to tarPath.
func (u *unpacker) decode(ctx context.Context, source, tarPath string) (uint64, error) {
	in, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", source, err)
	}
	defer in.Close()

	var total uint64
	if info, err := in.Stat(); err == nil {
		total = uint64(info.Size()) //nolint:gosec // file sizes are non-negative
	}

	var read fileio.Meter
	zr, err := envelope.NewReader(read.Reader(in))
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	out, err := os.Create(tarPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", envelope.Name, err)
	}
	defer out.Close()

	report(u.cfg.progress, ProgressEvent{Stage: StageDecompressing, BytesTotal: total})
	n, err := fileio.Copy(ctx, out, zr, nil)
	if err != nil {
		return 0, fmt.Errorf("decompress %s: %w", source, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", envelope.Name, err)
	}
	report(u.cfg.progress, ProgressEvent{Stage: StageDecompressing, BytesDone: read.Bytes(), BytesTotal: total})
	u.log().Debug("decoded envelope", "tar_size", n)
	return n, nil
}

// scan reads the tar file, recording pathnames and extracting content
// members to root as <id>/<kind>.
func (u *unpacker) scan(ctx context.Context, tarPath string, root *os.Root) (*scanState, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", envelope.Name, err)
	}
	defer f.Close()

	state := &scanState{paths: make(map[string]string), content: make(map[string]*staged)}
	buf := make([]byte, 32*1024)
	members := 0
	err = layout.Scan(ctx, f, func(m layout.Member, body io.Reader) error {
		members++
		report(u.cfg.progress, ProgressEvent{Stage: StageScanning, Path: layout.Name(m.ID, m.Kind), EntriesDone: members})

		if m.Kind == layout.KindPathname {
			return u.recordPath(state, m.ID, body)
		}
		if err := stageMember(ctx, root, m, body, buf); err != nil {
			return err
		}
		s := state.content[m.ID]
		if s == nil {
			s = &staged{}
			state.content[m.ID] = s
		}
		if m.Kind == layout.KindAsset {
			s.asset = true
		} else {
			s.meta = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// recordPath maps id to its destination-relative path.
func (u *unpacker) recordPath(state *scanState, id string, body io.Reader) error {
	raw, err := layout.ReadPathname(body)
	if err != nil {
		return fmt.Errorf("%s: %w", layout.Name(id, layout.KindPathname), err)
	}
	if _, dup := state.paths[id]; dup {
		return fmt.Errorf("duplicate pathname for %s", id)
	}

	rel := pathutil.Normalize(raw)
	if !u.cfg.keepRoot {
		rel = pathutil.StripRoot(rel)
	}
	if rel == "." || !fs.ValidPath(rel) {
		return fmt.Errorf("invalid pathname %q for %s", raw, id)
	}
	state.paths[id] = rel
	return nil
}

// stageMember extracts one content member into root.
func stageMember(ctx context.Context, root *os.Root, m layout.Member, body io.Reader, buf []byte) error {
	if err := root.Mkdir(m.ID, dirPerm); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("stage %s: %w", m.ID, err)
	}
	name := path.Join(m.ID, string(m.Kind))
	f, err := root.OpenFile(filepath.FromSlash(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	defer f.Close()

	if _, err := fileio.Copy(ctx, f, body, buf); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return f.Close()
}

// resolve places staged content at the recorded paths under destination.
func (u *unpacker) resolve(ctx context.Context, stage *os.Root, state *scanState, destination string) (*UnpackResult, error) {
	if err := os.MkdirAll(destination, dirPerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", destination, err)
	}
	dst, err := os.OpenRoot(destination)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", destination, err)
	}
	defer dst.Close()

	ids := make([]string, 0, len(state.content))
	for id := range state.content {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	res := &UnpackResult{Path: destination}
	buf := make([]byte, 32*1024)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, ok := state.paths[id]
		if !ok {
			res.Orphans++
			u.log().Debug("skipping orphaned entry", "id", id)
			continue
		}
		s := state.content[id]
		if err := placeEntry(ctx, stage, dst, id, rel, s, buf); err != nil {
			return nil, err
		}
		if s.asset {
			res.Files++
		} else {
			res.Directories++
		}
		report(u.cfg.progress, ProgressEvent{
			Stage:        StageResolving,
			Path:         rel,
			EntriesDone:  i + 1,
			EntriesTotal: len(ids),
		})
	}
	return res, nil
}

// placeEntry writes the staged content for id at rel inside dst.
func placeEntry(ctx context.Context, stage, dst *os.Root, id, rel string, s *staged, buf []byte) error {
	target := filepath.FromSlash(rel)
	if parent := path.Dir(rel); parent != "." {
		if err := dst.MkdirAll(filepath.FromSlash(parent), dirPerm); err != nil {
			return fmt.Errorf("create %s: %w", parent, err)
		}
	}
	if s.asset {
		if err := copyStaged(ctx, stage, path.Join(id, string(layout.KindAsset)), dst, target, buf); err != nil {
			return err
		}
	} else if err := dst.MkdirAll(target, dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	if s.meta {
		return copyStaged(ctx, stage, path.Join(id, string(layout.KindMeta)), dst, sidecar.PathFor(target), buf)
	}
	return nil
}

// copyStaged copies a staged member to a new file in dst.
func copyStaged(ctx context.Context, stage *os.Root, name string, dst *os.Root, target string, buf []byte) error {
	in, err := stage.Open(filepath.FromSlash(name))
	if err != nil {
		return fmt.Errorf("open staged %s: %w", name, err)
	}
	defer in.Close()

	out, err := dst.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := fileio.Copy(ctx, out, in, buf); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}

// rollback removes what Unpack wrote. A destination created by Unpack is
// deleted; a pre-existing one is emptied.
func (u *unpacker) rollback(destination string, existed bool) {
	if !existed {
		if err := os.RemoveAll(destination); err != nil {
			u.log().Warn("rollback", "path", destination, "error", err)
		}
		return
	}
	children, err := os.ReadDir(destination)
	if err != nil {
		u.log().Warn("rollback", "path", destination, "error", err)
		return
	}
	for _, c := range children {
		p := filepath.Join(destination, c.Name())
		if err := os.RemoveAll(p); err != nil {
			u.log().Warn("rollback", "path", p, "error", err)
		}
	}
}
