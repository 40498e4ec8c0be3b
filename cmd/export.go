package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"evidence-registry/internal/export"
)

func newExportCommand(configPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write anchored evidence to an .xlsx workbook",
		Example: `  DATABASE_DRIVER=postgres evidence-registry export --out evidence.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.anchor.List(cmd.Context())
			if err != nil {
				return err
			}
			if err := export.WriteWorkbook(out, docs); err != nil {
				return err
			}
			fmt.Printf("Exported %d anchored records to %s\n", len(docs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "evidence.xlsx", "output workbook path")
	return cmd
}
