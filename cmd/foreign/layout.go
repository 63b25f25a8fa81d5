package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"foreign/internal/ctype"
	"foreign/internal/layout"
	"foreign/internal/sig"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <signature>",
	Short: "Show the call frame layout for a signature",
	Long: `Layout parses a signature and prints where each argument slot and the
return slot land in the scratch region, plus the total frame size including
the trailing pointer array. No library is opened.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed, err := sig.Parse(args[0])
		if err != nil {
			return err
		}

		target := layout.Native()
		slots := make([]layout.Slot, len(parsed.Args))
		nameWidth := len("return")
		for i, t := range parsed.Args {
			slots[i] = t.Slot()
			if w := runewidth.StringWidth(t.Name); w > nameWidth {
				nameWidth = w
			}
		}
		offsets := layout.Offsets(slots)
		scratch := layout.ScratchSize(slots)
		retOffset := layout.AlignedOffset(scratch, parsed.Ret.Align)
		// Return slot plus one pointer-sized slack word, then the array.
		scratchEnd := retOffset + parsed.Ret.Size + target.PtrSize
		total, arrayOffset := layout.FrameSize(scratchEnd, len(parsed.Args), target)

		out := cmd.OutOrStdout()
		header := fmt.Sprintf("%-*s %8s %6s %6s", nameWidth, "slot", "offset", "size", "align")
		if isTerminal(os.Stdout) {
			header = color.New(color.Bold).Sprint(header)
		}
		fmt.Fprintln(out, header)
		for i, t := range parsed.Args {
			fmt.Fprintf(out, "%-*s %8d %6d %6d\n", nameWidth, t.Name, offsets[i], t.Size, t.Align)
		}
		if parsed.Ret != ctype.TVoid {
			fmt.Fprintf(out, "%-*s %8d %6d %6d\n", nameWidth, "return", retOffset, parsed.Ret.Size, parsed.Ret.Align)
		}
		fmt.Fprintf(out, "\npointer array at %d (%d entries), frame %d bytes (%s)\n",
			arrayOffset, len(parsed.Args), total, target.Triple)
		return nil
	},
}
