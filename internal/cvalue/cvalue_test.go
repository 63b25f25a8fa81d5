package cvalue_test

import (
	"testing"
	"unsafe"

	"foreign/internal/ctype"
	"foreign/internal/cvalue"
)

func slotFor(t *ctype.Type) unsafe.Pointer {
	buf := make([]byte, t.Size)
	return unsafe.Pointer(&buf[0])
}

func TestStoreLoadRoundTrip(t *testing.T) {
	cases := []struct {
		typ  *ctype.Type
		text string
		want string
	}{
		{ctype.TSInt8, "-128", "-128"},
		{ctype.TUInt8, "255", "255"},
		{ctype.TSInt16, "-1", "-1"},
		{ctype.TUInt16, "0xffff", "65535"},
		{ctype.TSInt32, "-2147483648", "-2147483648"},
		{ctype.TUInt32, "4294967295", "4294967295"},
		{ctype.TSInt64, "-9223372036854775808", "-9223372036854775808"},
		{ctype.TUInt64, "18446744073709551615", "18446744073709551615"},
		{ctype.TFloat, "1.5", "1.5"},
		{ctype.TDouble, "-2.25", "-2.25"},
		{ctype.TPointer, "0xdeadbeef", "0xdeadbeef"},
	}
	for _, tc := range cases {
		p := slotFor(tc.typ)
		if err := cvalue.Store(p, tc.typ, tc.text); err != nil {
			t.Errorf("Store(%s, %q): %v", tc.typ, tc.text, err)
			continue
		}
		if got := cvalue.Load(p, tc.typ); got != tc.want {
			t.Errorf("Load(%s) after Store(%q) = %q, want %q", tc.typ, tc.text, got, tc.want)
		}
	}
}

func TestStoreRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		typ  *ctype.Type
		text string
	}{
		{ctype.TSInt8, "128"},
		{ctype.TUInt8, "-1"},
		{ctype.TSInt16, "40000"},
		{ctype.TUInt32, "-7"},
		{ctype.TSInt32, "2147483648"},
		{ctype.TUInt64, "-1"},
	}
	for _, tc := range cases {
		p := slotFor(tc.typ)
		if err := cvalue.Store(p, tc.typ, tc.text); err == nil {
			t.Errorf("Store(%s, %q): expected range error", tc.typ, tc.text)
		}
	}
}

func TestStoreRejectsKindMismatch(t *testing.T) {
	p := slotFor(ctype.TDouble)
	if err := cvalue.StoreInt(p, ctype.TDouble, 1); err == nil {
		t.Error("StoreInt into double slot: expected error")
	}
	q := slotFor(ctype.TSInt32)
	if err := cvalue.StoreFloat(q, ctype.TSInt32, 1.5); err == nil {
		t.Error("StoreFloat into sint32 slot: expected error")
	}
	if err := cvalue.Store(q, ctype.TVoid, "0"); err == nil {
		t.Error("Store into void slot: expected error")
	}
}

func TestStoreParsesBasePrefixes(t *testing.T) {
	p := slotFor(ctype.TSInt32)
	if err := cvalue.Store(p, ctype.TSInt32, "0o17"); err != nil {
		t.Fatalf("Store octal: %v", err)
	}
	if got := cvalue.Load(p, ctype.TSInt32); got != "15" {
		t.Fatalf("octal 0o17 loaded as %q, want 15", got)
	}
}
