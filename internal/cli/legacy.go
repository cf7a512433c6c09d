package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// noConsole is the optional trailing argument of the positional form.
const noConsole = "noConsole"

func (c *CLI) legacyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "legacy <P|PA|PP|U|UK> <source> <destination> [noConsole]",
		Short: "Run the positional work/source/destination form",
		Long: `Run pack or unpack from positional arguments, as older scripts do.

  P    pack with no root prefix
  PA   pack with root "Assets"
  PP   pack with root "Packages"
  U    unpack, removing the root element
  UK   unpack, keeping the root element

A trailing "noConsole" argument suppresses all output below error level.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 4 && args[3] == noConsole {
				return nil
			}
			if len(args) != 3 {
				return usageError(fmt.Errorf("expected 3 arguments, got %d", len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 4 {
				c.Logger.SetLevel(log.ErrorLevel)
			}
			source, destination := args[1], args[2]
			switch strings.ToUpper(args[0]) {
			case "P":
				return c.runPack(cmd, source, destination, c.legacyPack("none"))
			case "PA":
				return c.runPack(cmd, source, destination, c.legacyPack("assets"))
			case "PP":
				return c.runPack(cmd, source, destination, c.legacyPack("packages"))
			case "U":
				return c.runUnpack(cmd, source, destination, unpackOptions{tempDir: c.Config.TempDir})
			case "UK":
				return c.runUnpack(cmd, source, destination, unpackOptions{keepRoot: true, tempDir: c.Config.TempDir})
			default:
				return usageError(fmt.Errorf("unknown work %q: want P, PA, PP, U, or UK", args[0]))
			}
		},
	}
}

func (c *CLI) legacyPack(root string) packOptions {
	opts := packOptions{root: root, level: -1, tempDir: c.Config.TempDir, legacy: true}
	if c.Config.CompressionLevel != nil {
		opts.level = *c.Config.CompressionLevel
	}
	return opts
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
