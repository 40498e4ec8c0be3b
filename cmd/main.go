package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "evidence-registry",
		Short: "Evidence registry: ingest, anchor and verify evidence files",
		Long: `Evidence registry

Ingests evidence files, stamps each with a fingerprint and signature label,
tracks it through pending -> processing -> verified|error and answers
verification lookups by content id, digest, fingerprint or transaction id.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to JSON config file")

	root.AddCommand(
		newServeCommand(&configPath),
		newSubmitCommand(&configPath),
		newVerifyCommand(&configPath),
		newExportCommand(&configPath),
	)
	return root
}
