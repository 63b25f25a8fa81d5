package main

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"foreign/internal/call"
	"foreign/internal/ctype"
	"foreign/internal/cvalue"
	"foreign/internal/dl"
	"foreign/internal/engine"
	"foreign/internal/manifest"
	"foreign/internal/sig"
)

var (
	callSig            string
	callManifestPath   string
	callCheckErrno     bool
	callReleaseRuntime bool
	callNoCache        bool
)

func init() {
	callCmd.Flags().StringVar(&callSig, "sig", "", "call signature, e.g. \"double -> double\"")
	callCmd.Flags().StringVar(&callManifestPath, "manifest", "", "binding manifest (TOML); the symbol argument selects a [functions.*] entry")
	callCmd.Flags().BoolVar(&callCheckErrno, "errno", false, "reset errno before the call and fail on a non-zero value after")
	callCmd.Flags().BoolVar(&callReleaseRuntime, "release-runtime", false, "release the runtime lock for the duration of the native call")
	callCmd.Flags().BoolVar(&callNoCache, "no-cache", false, "bypass the manifest disk cache")
}

var callCmd = &cobra.Command{
	Use:   "call [library] <symbol> [arg...]",
	Short: "Dispatch one native call",
	Long: `Call resolves a symbol in a shared library and dispatches a call to it.
The call shape comes from --sig, or from a manifest entry named by the
symbol argument when --manifest is set (the manifest then also names the
library). String arguments are passed by reference to their bytes with a
trailing NUL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveCallTarget(args)
		if err != nil {
			return err
		}
		if len(args)-target.consumed != target.signature.NumArgs() {
			return fmt.Errorf("%s takes %d argument(s), got %d",
				target.name, target.signature.NumArgs(), len(args)-target.consumed)
		}
		values := args[target.consumed:]

		eng, err := engine.Native()
		if err != nil {
			return err
		}
		lib, err := dl.Open(target.library)
		if err != nil {
			return err
		}
		defer lib.Close()
		addr, err := lib.Symbol(target.symbol)
		if err != nil {
			return err
		}

		host := &call.Host{Engine: eng}
		spec := host.NewSpec(call.Context{
			CheckErrno:     target.options.CheckErrno,
			ReleaseRuntime: target.options.ReleaseRuntime,
		})
		defer spec.Close()
		for _, t := range target.signature.Args {
			spec.AddArg(t)
		}
		if err := spec.Prepare(engine.Default, target.signature.Ret); err != nil {
			return err
		}

		writer := func(f *call.Frame) error {
			for i, text := range values {
				if target.signature.IsString[i] {
					if err := f.BindBytes(i, append([]byte(text), 0)); err != nil {
						return err
					}
					continue
				}
				if err := cvalue.Store(f.Slot(i), target.signature.Args[i], text); err != nil {
					return err
				}
			}
			return nil
		}

		var result string
		reader := func(ret unsafe.Pointer) {
			result = cvalue.Load(ret, target.signature.Ret)
		}
		if err := spec.Call(addr, target.symbol, writer, reader); err != nil {
			return err
		}

		if target.signature.Ret != ctype.TVoid {
			arrow := "=>"
			if isTerminal(os.Stdout) {
				arrow = color.CyanString("=>")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", arrow, result)
		}
		return nil
	},
}

// callTarget is the resolved shape of one call: where it goes and how.
type callTarget struct {
	library   string
	symbol    string
	name      string
	signature *sig.Signature
	options   manifest.Options
	consumed  int
}

func resolveCallTarget(args []string) (*callTarget, error) {
	if callManifestPath != "" {
		if callSig != "" {
			return nil, fmt.Errorf("--sig and --manifest are mutually exclusive")
		}
		var cache *manifest.DiskCache
		if !callNoCache {
			cache, _ = manifest.OpenDiskCache("foreign")
		}
		m, err := manifest.LoadFileCached(callManifestPath, cache)
		if err != nil {
			return nil, err
		}
		fn, ok := m.Lookup(args[0])
		if !ok {
			return nil, fmt.Errorf("%s: no [functions.%s] entry", callManifestPath, args[0])
		}
		opts := fn.Options
		if callCheckErrno {
			opts.CheckErrno = true
		}
		if callReleaseRuntime {
			opts.ReleaseRuntime = true
		}
		return &callTarget{
			library:   m.Library,
			symbol:    fn.Symbol,
			name:      fn.Name,
			signature: fn.Signature,
			options:   opts,
			consumed:  1,
		}, nil
	}

	if callSig == "" {
		return nil, fmt.Errorf("either --sig or --manifest is required")
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: foreign call <library> <symbol> [arg...]")
	}
	parsed, err := sig.Parse(callSig)
	if err != nil {
		return nil, err
	}
	return &callTarget{
		library:   args[0],
		symbol:    args[1],
		name:      args[1],
		signature: parsed,
		options: manifest.Options{
			CheckErrno:     callCheckErrno,
			ReleaseRuntime: callReleaseRuntime,
		},
		consumed: 2,
	}, nil
}
