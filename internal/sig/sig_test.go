package sig_test

import (
	"testing"

	"foreign/internal/ctype"
	"foreign/internal/sig"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		wantArgs []*ctype.Type
		wantRet  *ctype.Type
		strings  []bool
	}{
		{"int32, double -> double", []*ctype.Type{ctype.TSInt32, ctype.TDouble}, ctype.TDouble, []bool{false, false}},
		{"string -> int32", []*ctype.Type{ctype.TPointer}, ctype.TSInt32, []bool{true}},
		{"-> void", nil, ctype.TVoid, nil},
		{"void -> int", nil, ctype.TSInt32, nil},
		{" char , size_t -> long ", []*ctype.Type{ctype.TSInt8, ctype.TUInt64}, ctype.TSInt64, []bool{false, false}},
		{"ptr, uint -> pointer", []*ctype.Type{ctype.TPointer, ctype.TUInt32}, ctype.TPointer, []bool{false, false}},
	}
	for _, tc := range cases {
		got, err := sig.Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got.Ret != tc.wantRet {
			t.Errorf("Parse(%q).Ret = %s, want %s", tc.in, got.Ret, tc.wantRet)
		}
		if len(got.Args) != len(tc.wantArgs) {
			t.Errorf("Parse(%q): %d args, want %d", tc.in, len(got.Args), len(tc.wantArgs))
			continue
		}
		for i := range tc.wantArgs {
			if got.Args[i] != tc.wantArgs[i] {
				t.Errorf("Parse(%q) arg %d = %s, want %s", tc.in, i, got.Args[i], tc.wantArgs[i])
			}
			if got.IsString[i] != tc.strings[i] {
				t.Errorf("Parse(%q) arg %d IsString = %v, want %v", tc.in, i, got.IsString[i], tc.strings[i])
			}
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"int32, double",       // no separator
		"int32 -> string",     // string return
		"frob -> int32",       // unknown arg
		"int32 -> frob",       // unknown return
		"int32, void -> int",  // void argument
		"int32, , int -> int", // empty argument
	} {
		if _, err := sig.Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestSignatureString(t *testing.T) {
	s, err := sig.Parse("string, int -> long")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.String(); got != "string, sint32 -> sint64" {
		t.Fatalf("String() = %q", got)
	}
}
