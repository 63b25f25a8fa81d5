package call

import "fmt"

// ErrorKind enumerates the recoverable failures of the call layer.
// API misuse (wrong specification state, fold tag mismatches) is not part of
// this taxonomy: it panics with a contract violation instead.
type ErrorKind uint8

const (
	// ErrInvalidInterface: the engine rejected the signature at prepare
	// time (bad type layout or unsupported ABI). Fatal to that
	// specification; retrying without changing inputs cannot succeed.
	ErrInvalidInterface ErrorKind = iota + 1
	// ErrOutOfMemory: trampoline allocation failed. Recoverable, e.g. by
	// freeing other trampolines and retrying.
	ErrOutOfMemory
	// ErrErrno: the native call left a non-zero OS error code.
	ErrErrno
	// ErrUnsupportedArgument: an argument writer attempted an indirection
	// other than binding externally-owned immutable bytes.
	ErrUnsupportedArgument
	// ErrExpiredClosure: the host resolver no longer knows the closure key
	// a trampoline was built over.
	ErrExpiredClosure
)

// Error is the call layer's error value.
type Error struct {
	Kind ErrorKind
	Name string // function name, for ErrErrno
	Code int    // captured OS error code, for ErrErrno
	Key  int64  // closure key, for ErrExpiredClosure
	Arg  int    // argument index, for ErrUnsupportedArgument
	Err  error  // underlying engine error, if any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrInvalidInterface:
		if e.Err != nil {
			return fmt.Sprintf("invalid call interface: %v", e.Err)
		}
		return "invalid call interface"
	case ErrOutOfMemory:
		if e.Err != nil {
			return fmt.Sprintf("trampoline allocation failed: %v", e.Err)
		}
		return "trampoline allocation failed"
	case ErrErrno:
		return fmt.Sprintf("%s: errno %d after native call", e.Name, e.Code)
	case ErrUnsupportedArgument:
		return fmt.Sprintf("argument %d: unsupported indirection (only externally-owned bytes may replace a pointer slot)", e.Arg)
	case ErrExpiredClosure:
		return fmt.Sprintf("call to expired closure (key %d)", e.Key)
	default:
		return fmt.Sprintf("call error kind=%d", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// contractViolation is the panic payload for API misuse. It is never
// recovered by this package's handlers: misuse must fail loudly.
type contractViolation string

func (v contractViolation) Error() string { return string(v) }

func violate(format string, args ...any) {
	panic(contractViolation("call: " + fmt.Sprintf(format, args...)))
}
