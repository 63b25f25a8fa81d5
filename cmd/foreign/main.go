package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"foreign/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "foreign",
	Short: "Call into shared libraries from the command line",
	Long:  `foreign opens shared libraries, inspects their exported symbols and dispatches calls described by textual signatures or a binding manifest`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
