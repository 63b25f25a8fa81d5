package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"foreign/internal/elfsym"
)

var (
	symbolsFuncsOnly bool
	symbolsFind      string
)

func init() {
	symbolsCmd.Flags().BoolVar(&symbolsFuncsOnly, "funcs", false, "list only callable symbols")
	symbolsCmd.Flags().StringVar(&symbolsFind, "find", "", "list only symbols whose name contains this substring")
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <library>...",
	Short: "List the dynamic symbols shared libraries export",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		type libSyms struct {
			path string
			syms []elfsym.Symbol
		}
		results := make([]libSyms, len(args))

		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i, path := range args {
			i, path := i, path
			g.Go(func() error {
				syms, err := elfsym.List(path)
				if err != nil {
					return err
				}
				if symbolsFuncsOnly || symbolsFind != "" {
					if symbolsFuncsOnly {
						syms = elfsym.Funcs(syms, symbolsFind)
					} else {
						syms = filterByName(syms, symbolsFind)
					}
				}
				results[i] = libSyms{path: path, syms: syms}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		coll := collate.New(language.Und)
		out := cmd.OutOrStdout()
		headerStyle := color.New(color.Bold)
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if len(results) > 1 {
				if isTerminal(os.Stdout) {
					headerStyle.Fprintf(out, "%s:\n", r.path)
				} else {
					fmt.Fprintf(out, "%s:\n", r.path)
				}
			}
			coll.Sort(symbolSlice(r.syms))
			for _, s := range r.syms {
				fmt.Fprintf(out, "%-8s %8d  %s%s\n", s.Kind, s.Size, s.Name, versionSuffix(s.Version))
			}
		}
		return nil
	},
}

// symbolSlice adapts symbols to the collator's sort interface.
type symbolSlice []elfsym.Symbol

func (s symbolSlice) Len() int           { return len(s) }
func (s symbolSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s symbolSlice) Bytes(i int) []byte { return []byte(s[i].Name) }

func filterByName(syms []elfsym.Symbol, substr string) []elfsym.Symbol {
	out := make([]elfsym.Symbol, 0, len(syms))
	for _, s := range syms {
		if substr == "" || strings.Contains(s.Name, substr) {
			out = append(out, s)
		}
	}
	return out
}

func versionSuffix(v string) string {
	if v == "" {
		return ""
	}
	return "@" + v
}
