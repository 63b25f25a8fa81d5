// Package elfsym lists the dynamic symbols a shared library exports, the
// part of an ELF that matters for binding: what can be resolved at run
// time, without opening the library through the loader.
package elfsym

import (
	"debug/elf"
	"fmt"
	"strings"
)

// Kind classifies a dynamic symbol.
type Kind uint8

const (
	KindOther Kind = iota
	KindFunc
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindObject:
		return "object"
	default:
		return "other"
	}
}

// Symbol is one exported dynamic symbol.
type Symbol struct {
	Name    string
	Kind    Kind
	Size    uint64
	Version string
}

// List returns the defined dynamic symbols of the shared object at path.
// Undefined entries (imports) and local symbols are skipped.
func List(path string) ([]Symbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfsym: %s: %w", path, err)
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		return nil, fmt.Errorf("elfsym: %s: %w", path, err)
	}

	out := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		if elf.ST_BIND(s.Info) == elf.STB_LOCAL {
			continue
		}
		out = append(out, Symbol{
			Name:    s.Name,
			Kind:    kindOf(elf.ST_TYPE(s.Info)),
			Size:    s.Size,
			Version: s.Version,
		})
	}
	return out, nil
}

// Funcs filters syms down to callable symbols, optionally to those whose
// name contains substr.
func Funcs(syms []Symbol, substr string) []Symbol {
	out := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Kind != KindFunc {
			continue
		}
		if substr != "" && !strings.Contains(s.Name, substr) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func kindOf(t elf.SymType) Kind {
	switch t {
	case elf.STT_FUNC, elf.SymType(10): // STT_GNU_IFUNC; named constant requires Go >= 1.23
		return KindFunc
	case elf.STT_OBJECT:
		return KindObject
	default:
		return KindOther
	}
}
