// Package manifest loads binding manifests: a TOML description of a shared
// library and the functions to expose from it, each with a textual
// signature. Signatures are parsed and validated at load time so a bad
// manifest fails before any library is opened.
package manifest

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"foreign/internal/sig"
)

// Digest identifies manifest content.
type Digest = [sha256.Size]byte

// Options are per-call dispatch settings; function entries may override the
// manifest defaults field by field.
type Options struct {
	CheckErrno     bool `toml:"check_errno"`
	ReleaseRuntime bool `toml:"release_runtime"`
}

// Function is one bound native function.
type Function struct {
	// Name is the manifest key the function is exposed under.
	Name string
	// Symbol is the dynamic symbol to resolve; defaults to Name.
	Symbol string
	// Signature is the parsed call shape.
	Signature *sig.Signature
	// Options are the effective dispatch settings after applying overrides.
	Options Options
}

// Manifest is a loaded, validated binding manifest.
type Manifest struct {
	// Library is the shared-object path or soname; empty binds the running
	// process image.
	Library string
	// Functions in name order.
	Functions []Function
	// ContentHash digests the raw manifest bytes, for cache keying.
	ContentHash Digest
}

var (
	// ErrLibrarySectionMissing indicates that [library] is missing.
	ErrLibrarySectionMissing = errors.New("missing [library]")
	// ErrNoFunctions indicates a manifest with no [functions.*] entries.
	ErrNoFunctions = errors.New("no [functions] declared")
)

type rawManifest struct {
	Library struct {
		Path string `toml:"path"`
	} `toml:"library"`
	Defaults Options `toml:"defaults"`
	Functions map[string]struct {
		Signature      string `toml:"signature"`
		Symbol         string `toml:"symbol"`
		CheckErrno     *bool  `toml:"check_errno"`
		ReleaseRuntime *bool  `toml:"release_runtime"`
	} `toml:"functions"`
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse parses manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if !meta.IsDefined("library") {
		return nil, ErrLibrarySectionMissing
	}
	if len(raw.Functions) == 0 {
		return nil, ErrNoFunctions
	}

	m := &Manifest{
		Library:     strings.TrimSpace(raw.Library.Path),
		ContentHash: sha256.Sum256(data),
	}
	names := make([]string, 0, len(raw.Functions))
	for name := range raw.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := raw.Functions[name]
		if strings.TrimSpace(entry.Signature) == "" {
			return nil, fmt.Errorf("[functions.%s]: missing signature", name)
		}
		parsed, err := sig.Parse(entry.Signature)
		if err != nil {
			return nil, fmt.Errorf("[functions.%s]: %w", name, err)
		}
		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			symbol = name
		}
		opts := raw.Defaults
		if entry.CheckErrno != nil {
			opts.CheckErrno = *entry.CheckErrno
		}
		if entry.ReleaseRuntime != nil {
			opts.ReleaseRuntime = *entry.ReleaseRuntime
		}
		m.Functions = append(m.Functions, Function{
			Name:      name,
			Symbol:    symbol,
			Signature: parsed,
			Options:   opts,
		})
	}
	return m, nil
}

// LoadFileCached is LoadFile with a read-through disk cache: a cache hit
// for the file's content digest skips parsing and validation, a miss (or a
// corrupt payload) falls back to Parse and refreshes the entry best-effort.
// cache may be nil.
func LoadFileCached(path string, cache *DiskCache) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key := sha256.Sum256(data)

	var payload DiskPayload
	if ok, err := cache.Get(key, &payload); err == nil && ok {
		if m, err := FromDiskPayload(&payload, key); err == nil {
			return m, nil
		}
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	_ = cache.Put(key, m.ToDiskPayload())
	return m, nil
}

// Lookup returns the function exposed under name.
func (m *Manifest) Lookup(name string) (Function, bool) {
	for _, f := range m.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}
