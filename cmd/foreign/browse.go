package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"foreign/internal/elfsym"
	"foreign/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <library>",
	Short: "Browse a library's exported symbols interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !isTerminal(os.Stdout) {
			// No terminal: degrade to a plain listing.
			syms, err := elfsym.List(path)
			if err != nil {
				return err
			}
			for _, s := range syms {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %8d  %s\n", s.Kind, s.Size, s.Name)
			}
			return nil
		}

		model := ui.NewBrowserModel(path, func() ([]elfsym.Symbol, error) {
			return elfsym.List(path)
		})
		program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithAltScreen())
		_, err := program.Run()
		return err
	},
}
