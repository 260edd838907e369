package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/export"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <output.db>",
	Short: "Write the merged directory and relationships to a SQLite file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runExport(cmd.Context(), a.catalog, cmd.OutOrStdout(), args[0])
	},
}

func runExport(ctx context.Context, svc *catalog.Service, out io.Writer, path string) error {
	d, err := svc.Dataset(ctx)
	if err != nil {
		return err
	}
	if err := export.Write(path, d); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "wrote %d students, %d relationships to %s\n", len(d.Entities), d.Family.Len(), path)
	return err
}
