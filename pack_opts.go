package unitypackage

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/meigma/unitypackage/internal/envelope"
)

// RootPrefix is the logical root prepended to every archived pathname.
type RootPrefix string

// Supported root prefixes.
const (
	// RootNone archives paths relative to the source's parent directory.
	RootNone RootPrefix = ""

	// RootAssets archives paths under "Assets/".
	RootAssets RootPrefix = "Assets/"

	// RootPackages archives paths under "Packages/".
	RootPackages RootPrefix = "Packages/"
)

// String returns the prefix, or "none" for RootNone.
func (p RootPrefix) String() string {
	if p == RootNone {
		return "none"
	}
	return string(p)
}

// ParseRootPrefix accepts "none", "assets", or "packages" in any case,
// with or without a trailing slash. The empty string is RootNone.
func ParseRootPrefix(s string) (RootPrefix, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "/")) {
	case "", "none":
		return RootNone, nil
	case "assets":
		return RootAssets, nil
	case "packages":
		return RootPackages, nil
	default:
		return RootNone, fmt.Errorf("unknown root prefix %q: want none, assets, or packages", s)
	}
}

// packConfig holds configuration for Pack.
type packConfig struct {
	prefix   RootPrefix
	level    int
	tempDir  string
	logger   *slog.Logger
	progress ProgressFunc
	random   io.Reader
}

func defaultPackConfig() packConfig {
	return packConfig{level: envelope.DefaultLevel}
}

// PackOption configures Pack.
type PackOption func(*packConfig)

// PackWithRootPrefix sets the logical root prepended to archived paths.
func PackWithRootPrefix(p RootPrefix) PackOption {
	return func(c *packConfig) {
		c.prefix = p
	}
}

// PackWithCompressionLevel sets the deflate level, -2 (Huffman only)
// through 9 (best compression). The default is -1.
func PackWithCompressionLevel(level int) PackOption {
	return func(c *packConfig) {
		c.level = level
	}
}

// PackWithTempDir sets where staging directories are created.
// Defaults to os.TempDir.
func PackWithTempDir(dir string) PackOption {
	return func(c *packConfig) {
		c.tempDir = dir
	}
}

// PackWithLogger sets the logger for pack operations.
func PackWithLogger(l *slog.Logger) PackOption {
	return func(c *packConfig) {
		c.logger = l
	}
}

// PackWithProgress sets a callback for progress events.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(c *packConfig) {
		c.progress = fn
	}
}

// PackWithRandom sets the entropy source used to generate identifiers for
// assets without a sidecar. Defaults to crypto/rand.
func PackWithRandom(r io.Reader) PackOption {
	return func(c *packConfig) {
		c.random = r
	}
}
