// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/ManuGH/reportstream/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Maintenance for the SQLite report store",
	}

	var path, mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check database integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				return fmt.Errorf("%w: --path is required", errUsage)
			}
			mode = strings.ToLower(strings.TrimSpace(mode))
			if mode != sqlite.VerifyQuick && mode != sqlite.VerifyFull {
				return fmt.Errorf("%w: invalid mode %q, use quick or full", errUsage, mode)
			}

			issues, err := sqlite.VerifyIntegrity(cmd.Context(), path, mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintf(out, "%s: ok (%s)\n", path, mode)
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "%s: %s\n", path, issue)
			}
			return fmt.Errorf("%s failed %s integrity check", path, mode)
		},
	}
	verify.Flags().StringVar(&path, "path", "", "path to the SQLite database file")
	verify.Flags().StringVar(&mode, "mode", sqlite.VerifyQuick, "verification mode: quick or full")

	cmd.AddCommand(verify)
	return cmd
}
