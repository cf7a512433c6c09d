package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/unitypackage"
)

func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect <package>",
		Short:   "List the entries of a .unitypackage file",
		Example: `  unitypackage inspect MyPlugin.unitypackage`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := unitypackage.Inspect(cmd.Context(), args[0], unitypackage.InspectWithLogger(c.slogger()))
			if err != nil {
				return &opError{unpack: true, err: err}
			}
			return printInspect(cmd, res)
		},
	}
}

func printInspect(cmd *cobra.Command, res *unitypackage.InspectResult) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GUID\tKIND\tSIZE\tPATH")
	for _, e := range res.Entries() {
		kind, size := "file", fmt.Sprint(e.AssetSize)
		switch {
		case e.Orphaned():
			kind, size = "orphan", "-"
		case e.Empty():
			kind, size = "empty", "-"
		case e.IsDir():
			kind, size = "dir", "-"
		}
		if !e.HasMeta && !e.Empty() {
			kind += " (no meta)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, kind, size, e.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d files, %d directories, %d orphans, %d empty\nsize %d bytes (tar %d bytes)\ndigest %s\n",
		res.FileCount(), res.DirectoryCount(), len(res.Orphans()), res.EmptyCount(), res.Size(), res.TarSize(), res.Digest())
	return err
}
