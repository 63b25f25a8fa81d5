package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"foreign/internal/version"
)

const versionTagline = "speak native without an accent"

var (
	versionJSON bool
	versionFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "emit machine-readable output")
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, message and build date")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show foreign build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := strings.TrimSpace(version.Version)
		if v == "" {
			v = "dev"
		}

		// Extra fields appear only when recorded at build time.
		extras := []struct{ key, value string }{
			{"commit", strings.TrimSpace(version.GitCommit)},
			{"message", strings.TrimSpace(version.GitMessage)},
			{"built", strings.TrimSpace(version.BuildDate)},
		}

		out := cmd.OutOrStdout()
		if versionJSON {
			payload := map[string]string{
				"tool":    "foreign",
				"version": v,
				"tagline": versionTagline,
			}
			if versionFull {
				for _, e := range extras {
					if e.value != "" {
						payload[e.key] = e.value
					}
				}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}

		fmt.Fprintf(out, "foreign %s (%s)\n", v, versionTagline)
		if !versionFull {
			return nil
		}
		for _, e := range extras {
			if e.value == "" {
				continue
			}
			fmt.Fprintf(out, "%-8s %s\n", e.key+":", e.value)
		}
		return nil
	},
}
