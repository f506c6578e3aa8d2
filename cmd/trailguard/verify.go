package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/verify"
)

var (
	verifyFlagInput  string
	verifyFlagOutput string
	verifyFlagSeal   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Seal an alert export with a hash chain, or check a sealed one",
	Long: `Without --seal, verify re-computes the hash chain of a sealed alert export
and exits non-zero if any alert was modified, removed or reordered.

With --seal, it adds chainPrev/chainHash/chainIndex to every alert, continuing
the chain recorded in export.state_file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := verify.RunVerify(config.Get(), verify.VerifyArgs{
			InputFile:  verifyFlagInput,
			OutputFile: verifyFlagOutput,
			Seal:       verifyFlagSeal,
		})
		if sum != nil && !verifyFlagSeal {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if eerr := enc.Encode(sum); eerr != nil && err == nil {
				err = eerr
			}
		}
		return err
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlagInput, "input", "", "input NDJSON file (default stdin)")
	verifyCmd.Flags().StringVar(&verifyFlagOutput, "output", "", "output NDJSON file (default stdout; only with --seal)")
	verifyCmd.Flags().BoolVar(&verifyFlagSeal, "seal", false, "compute the chain instead of checking it")
}
