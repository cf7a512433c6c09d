// Package cli implements the unitypackage command-line interface.
//
// # Commands
//
//   - pack: Archive a directory into a .unitypackage file
//   - unpack: Restore a .unitypackage file into an empty directory
//   - inspect: List the entries of a .unitypackage file
//   - legacy: The positional "P|PA|PP|U|UK source destination" form
//
// # Logging
//
// Commands log through charmbracelet/log. --verbose enables debug output and
// --quiet suppresses everything below error level. The same logger is handed
// to the library as an slog handler.
//
// # Configuration
//
// Defaults may be set in a TOML file (see [Config]); flags override it.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// appName is the application name used for directories and display.
const appName = "unitypackage"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
	verbose    bool
	quiet      bool
}

// New creates a CLI logging to w.
func New(w io.Writer) *CLI {
	return &CLI{Logger: newLogger(w, log.InfoLevel)}
}

// slogger returns the CLI logger as an *slog.Logger for the library.
func (c *CLI) slogger() *slog.Logger {
	return slog.New(c.Logger)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Pack and unpack .unitypackage archives",
		Long:          `unitypackage converts a directory of assets and their .meta sidecars into a portable .unitypackage archive, and restores such archives into a directory tree.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return usageError(fmt.Errorf("unknown command %q", args[0]))
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "only log errors")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(c.packCommand())
	root.AddCommand(c.unpackCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.legacyCommand())

	return root
}

// setup loads the config file and applies the log level.
func (c *CLI) setup() error {
	path := c.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return usageError(err)
	}
	c.Config = cfg

	level, err := cfg.level()
	if err != nil {
		return usageError(err)
	}
	switch {
	case c.quiet:
		level = log.ErrorLevel
	case c.verbose:
		level = log.DebugLevel
	}
	c.Logger.SetLevel(level)
	return nil
}
