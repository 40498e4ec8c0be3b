package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"evidence-registry/internal/evidence"
)

func newVerifyCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify QUERY",
		Short: "Look up evidence by content id, digest, fingerprint or tx id",
		Example: `  evidence-registry verify QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG
  VERIFY_RESOLVER=random evidence-registry verify 0xabc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.verifier.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if res.Status != evidence.LookupFound {
				fmt.Printf("%s  no record found for %s\n", badge(evidence.StatusError), res.QueryID)
				return nil
			}
			fmt.Printf("%s  %s\n", badge(evidence.StatusVerified), res.QueryID)
			fmt.Printf("  Evidence Hash:    %s\n", res.ResolvedHash)
			fmt.Printf("  Transaction Hash: %s\n", res.LedgerRef)
			fmt.Printf("  Block Number:     %s\n", res.BlockRef)
			fmt.Printf("  Organization:     %s\n", res.IssuingOrganization)
			if res.ObservedAt != nil {
				fmt.Printf("  Timestamp:        %s\n", res.ObservedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
