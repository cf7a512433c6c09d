package unitypackage

import "log/slog"

// unpackConfig holds configuration for Unpack.
type unpackConfig struct {
	keepRoot bool
	tempDir  string
	logger   *slog.Logger
	progress ProgressFunc
}

// UnpackOption configures Unpack.
type UnpackOption func(*unpackConfig)

// UnpackWithKeepRootPrefix keeps the first element of each archived
// pathname (such as "Assets") instead of stripping it.
func UnpackWithKeepRootPrefix(keep bool) UnpackOption {
	return func(c *unpackConfig) {
		c.keepRoot = keep
	}
}

// UnpackWithTempDir sets where staging directories are created.
// Defaults to os.TempDir.
func UnpackWithTempDir(dir string) UnpackOption {
	return func(c *unpackConfig) {
		c.tempDir = dir
	}
}

// UnpackWithLogger sets the logger for unpack operations.
func UnpackWithLogger(l *slog.Logger) UnpackOption {
	return func(c *unpackConfig) {
		c.logger = l
	}
}

// UnpackWithProgress sets a callback for progress events.
func UnpackWithProgress(fn ProgressFunc) UnpackOption {
	return func(c *unpackConfig) {
		c.progress = fn
	}
}
