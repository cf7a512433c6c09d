package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/unitypackage"
)

// unpackOptions holds flags for the unpack command.
type unpackOptions struct {
	keepRoot bool
	tempDir  string
}

func (c *CLI) unpackCommand() *cobra.Command {
	opts := unpackOptions{}

	cmd := &cobra.Command{
		Use:   "unpack <package> <destination-dir>",
		Short: "Restore a .unitypackage file into a directory",
		Long: `Restore a .unitypackage file into a directory that is missing or empty.

By default the first element of every archived path ("Assets", "Packages")
is dropped. Use --keep-root to keep it.`,
		Example: `  unitypackage unpack MyPlugin.unitypackage ./out --keep-root`,
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep-root") {
				opts.keepRoot = c.Config.KeepRoot
			}
			if !cmd.Flags().Changed("temp-dir") {
				opts.tempDir = c.Config.TempDir
			}
			return c.runUnpack(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.keepRoot, "keep-root", false, "keep the root element of archived paths")
	cmd.Flags().StringVar(&opts.tempDir, "temp-dir", "", "directory for staging files")

	return cmd
}

func (c *CLI) runUnpack(cmd *cobra.Command, source, destination string, opts unpackOptions) error {
	start := time.Now()
	res, err := unitypackage.Unpack(cmd.Context(), source, destination,
		unitypackage.UnpackWithKeepRootPrefix(opts.keepRoot),
		unitypackage.UnpackWithTempDir(opts.tempDir),
		unitypackage.UnpackWithLogger(c.slogger()),
		unitypackage.UnpackWithProgress(c.progress()),
	)
	if err != nil {
		return &opError{unpack: true, err: err}
	}

	c.Logger.Info(fmt.Sprintf("UnityPackage unpacked at %q (%s)", res.Path, time.Since(start).Round(time.Millisecond)),
		"files", res.Files,
		"directories", res.Directories,
		"orphans", res.Orphans)
	return nil
}
