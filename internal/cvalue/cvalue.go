// Package cvalue moves scalar values across the managed/native boundary:
// range-checked stores of Go integers and floats into typed argument slots,
// and the matching loads from return slots. Conversions that would silently
// truncate are rejected instead.
package cvalue

import (
	"fmt"
	"strconv"
	"unsafe"

	"fortio.org/safecast"

	"foreign/internal/ctype"
)

// StoreInt writes v into the slot at p according to t, rejecting values
// outside the type's range.
func StoreInt(p unsafe.Pointer, t *ctype.Type, v int64) error {
	switch t.Class {
	case ctype.SInt8:
		n, err := safecast.Conv[int8](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*int8)(p) = n
	case ctype.UInt8:
		n, err := safecast.Conv[uint8](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*uint8)(p) = n
	case ctype.SInt16:
		n, err := safecast.Conv[int16](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*int16)(p) = n
	case ctype.UInt16:
		n, err := safecast.Conv[uint16](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*uint16)(p) = n
	case ctype.SInt32:
		n, err := safecast.Conv[int32](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*int32)(p) = n
	case ctype.UInt32:
		n, err := safecast.Conv[uint32](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*uint32)(p) = n
	case ctype.SInt64:
		*(*int64)(p) = v
	case ctype.UInt64:
		n, err := safecast.Conv[uint64](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*uint64)(p) = n
	case ctype.Pointer:
		n, err := safecast.Conv[uintptr](v)
		if err != nil {
			return rangeErr(t, v, err)
		}
		*(*uintptr)(p) = n
	default:
		return fmt.Errorf("cvalue: %s is not an integer slot", t)
	}
	return nil
}

// StoreFloat writes v into a float slot at p.
func StoreFloat(p unsafe.Pointer, t *ctype.Type, v float64) error {
	switch t.Class {
	case ctype.Float32:
		*(*float32)(p) = float32(v)
	case ctype.Float64:
		*(*float64)(p) = v
	default:
		return fmt.Errorf("cvalue: %s is not a float slot", t)
	}
	return nil
}

// Store parses text per t's class and writes the result into the slot at p.
// Integer text accepts the usual base prefixes.
func Store(p unsafe.Pointer, t *ctype.Type, text string) error {
	switch t.Class {
	case ctype.Float32, ctype.Float64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("cvalue: %q is not a %s: %w", text, t, err)
		}
		return StoreFloat(p, t, v)
	case ctype.UInt64, ctype.Pointer:
		// Full unsigned range, unreachable through int64.
		v, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return fmt.Errorf("cvalue: %q is not a %s: %w", text, t, err)
		}
		if t.Class == ctype.Pointer {
			n, cerr := safecast.Conv[uintptr](v)
			if cerr != nil {
				return rangeErr(t, int64(v), cerr)
			}
			*(*uintptr)(p) = n
			return nil
		}
		*(*uint64)(p) = v
		return nil
	case ctype.Void:
		return fmt.Errorf("cvalue: void slot takes no value")
	default:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return fmt.Errorf("cvalue: %q is not a %s: %w", text, t, err)
		}
		return StoreInt(p, t, v)
	}
}

// Load reads the slot at p and renders it per t's class. Signed classes
// render signed, unsigned render unsigned, floats use the shortest
// round-trip form and pointers render in hex.
func Load(p unsafe.Pointer, t *ctype.Type) string {
	switch t.Class {
	case ctype.Void:
		return "void"
	case ctype.SInt8:
		return strconv.FormatInt(int64(*(*int8)(p)), 10)
	case ctype.UInt8:
		return strconv.FormatUint(uint64(*(*uint8)(p)), 10)
	case ctype.SInt16:
		return strconv.FormatInt(int64(*(*int16)(p)), 10)
	case ctype.UInt16:
		return strconv.FormatUint(uint64(*(*uint16)(p)), 10)
	case ctype.SInt32:
		return strconv.FormatInt(int64(*(*int32)(p)), 10)
	case ctype.UInt32:
		return strconv.FormatUint(uint64(*(*uint32)(p)), 10)
	case ctype.SInt64:
		return strconv.FormatInt(*(*int64)(p), 10)
	case ctype.UInt64:
		return strconv.FormatUint(*(*uint64)(p), 10)
	case ctype.Float32:
		return strconv.FormatFloat(float64(*(*float32)(p)), 'g', -1, 32)
	case ctype.Float64:
		return strconv.FormatFloat(*(*float64)(p), 'g', -1, 64)
	case ctype.Pointer:
		return fmt.Sprintf("%#x", *(*uintptr)(p))
	default:
		return fmt.Sprintf("<%s>", t)
	}
}

func rangeErr(t *ctype.Type, v int64, err error) error {
	return fmt.Errorf("cvalue: %d out of range for %s: %w", v, t, err)
}
