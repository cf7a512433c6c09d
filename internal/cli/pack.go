package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/unitypackage"
)

// packOptions holds flags for the pack command.
type packOptions struct {
	root    string
	level   int
	tempDir string

	// legacy marks packs started by the positional legacy command.
	legacy bool
}

func (c *CLI) packCommand() *cobra.Command {
	opts := packOptions{}

	cmd := &cobra.Command{
		Use:   "pack <source-dir> <package>",
		Short: "Archive a directory into a .unitypackage file",
		Long: `Archive a directory of assets into a .unitypackage file.

Archived paths start with the source directory's own name, preceded by the
root prefix if one is set. Assets without a .meta sidecar receive a new
identifier; the source tree is not modified.`,
		Example: `  unitypackage pack ./MyPlugin MyPlugin.unitypackage --root assets`,
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("root") {
				opts.root = c.Config.DefaultRoot
			}
			if !cmd.Flags().Changed("level") && c.Config.CompressionLevel != nil {
				opts.level = *c.Config.CompressionLevel
			}
			if !cmd.Flags().Changed("temp-dir") {
				opts.tempDir = c.Config.TempDir
			}
			return c.runPack(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "none", "root prefix: none, assets, or packages")
	cmd.Flags().IntVar(&opts.level, "level", -1, "deflate level (-2 to 9)")
	cmd.Flags().StringVar(&opts.tempDir, "temp-dir", "", "directory for staging files")

	return cmd
}

func (c *CLI) runPack(cmd *cobra.Command, source, destination string, opts packOptions) error {
	prefix, err := unitypackage.ParseRootPrefix(opts.root)
	if err != nil {
		return usageError(err)
	}

	start := time.Now()
	res, err := unitypackage.Pack(cmd.Context(), source, destination,
		unitypackage.PackWithRootPrefix(prefix),
		unitypackage.PackWithCompressionLevel(opts.level),
		unitypackage.PackWithTempDir(opts.tempDir),
		unitypackage.PackWithLogger(c.slogger()),
		unitypackage.PackWithProgress(c.progress()),
	)
	if err != nil {
		return &opError{legacy: opts.legacy, err: err}
	}

	c.Logger.Info(fmt.Sprintf("New UnityPackage created at %q (%s)", res.Path, time.Since(start).Round(time.Millisecond)),
		"entries", res.Entries,
		"generated", res.Generated,
		"size", res.Size,
		"digest", res.Digest)
	return nil
}

// progress logs stage transitions at debug level.
func (c *CLI) progress() unitypackage.ProgressFunc {
	last := unitypackage.ProgressStage(255)
	return func(ev unitypackage.ProgressEvent) {
		if ev.Stage == last {
			return
		}
		last = ev.Stage
		c.Logger.Debug(ev.Stage.String())
	}
}
