// Package sig parses textual native-call signatures of the form
//
//	int32, string -> int32
//	double, double -> double
//	-> void
//
// into type descriptors. Argument types left of "->", return type right of
// it; an empty left side means no arguments. "string" is pointer-classified
// and marked so the dispatcher knows to pass the value's bytes by
// reference.
package sig

import (
	"fmt"
	"strings"

	"foreign/internal/ctype"
)

// Signature is a parsed call shape.
type Signature struct {
	Args []*ctype.Type
	Ret  *ctype.Type

	// IsString marks arguments written "string": their slot is a pointer
	// bound to the argument text's bytes rather than a parsed scalar.
	IsString []bool
}

// NumArgs reports the number of declared arguments.
func (s *Signature) NumArgs() int { return len(s.Args) }

func (s *Signature) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		if s.IsString[i] {
			parts[i] = "string"
		} else {
			parts[i] = a.Name
		}
	}
	return strings.Join(parts, ", ") + " -> " + s.Ret.Name
}

// typeNames maps accepted spellings to descriptors. C-flavored aliases
// assume the LP64 model.
var typeNames = map[string]*ctype.Type{
	"void":    ctype.TVoid,
	"sint8":   ctype.TSInt8,
	"int8":    ctype.TSInt8,
	"char":    ctype.TSInt8,
	"uint8":   ctype.TUInt8,
	"uchar":   ctype.TUInt8,
	"sint16":  ctype.TSInt16,
	"int16":   ctype.TSInt16,
	"short":   ctype.TSInt16,
	"uint16":  ctype.TUInt16,
	"ushort":  ctype.TUInt16,
	"sint32":  ctype.TSInt32,
	"int32":   ctype.TSInt32,
	"int":     ctype.TSInt32,
	"uint32":  ctype.TUInt32,
	"uint":    ctype.TUInt32,
	"sint64":  ctype.TSInt64,
	"int64":   ctype.TSInt64,
	"long":    ctype.TSInt64,
	"uint64":  ctype.TUInt64,
	"ulong":   ctype.TUInt64,
	"size_t":  ctype.TUInt64,
	"float":   ctype.TFloat,
	"double":  ctype.TDouble,
	"pointer": ctype.TPointer,
	"ptr":     ctype.TPointer,
	"string":  ctype.TPointer,
}

// LookupType resolves one type spelling.
func LookupType(name string) (*ctype.Type, bool) {
	t, ok := typeNames[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Parse parses a signature. The "->" separator is mandatory; whitespace
// around names and commas is ignored.
func Parse(text string) (*Signature, error) {
	left, right, ok := strings.Cut(text, "->")
	if !ok {
		return nil, fmt.Errorf("sig: %q: missing \"->\" separator", text)
	}

	retName := strings.TrimSpace(right)
	if retName == "string" {
		return nil, fmt.Errorf("sig: %q: string is argument-only", text)
	}
	ret, ok := LookupType(retName)
	if !ok {
		return nil, fmt.Errorf("sig: %q: unknown return type %q", text, retName)
	}

	s := &Signature{Ret: ret}
	left = strings.TrimSpace(left)
	if left == "" || left == "void" {
		return s, nil
	}
	for _, raw := range strings.Split(left, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return nil, fmt.Errorf("sig: %q: empty argument type", text)
		}
		if name == "void" {
			return nil, fmt.Errorf("sig: %q: void is return-only", text)
		}
		t, ok := typeNames[name]
		if !ok {
			return nil, fmt.Errorf("sig: %q: unknown argument type %q", text, name)
		}
		s.Args = append(s.Args, t)
		s.IsString = append(s.IsString, name == "string")
	}
	return s, nil
}
