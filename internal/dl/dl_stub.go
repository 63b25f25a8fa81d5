//go:build !linux || !cgo

package dl

import "errors"

// ErrUnsupported reports that the dynamic loader is unavailable in this
// build (no cgo, or a platform without dlfcn).
var ErrUnsupported = errors.New("dl: dynamic loading requires cgo on linux")

type Library struct{}

func Open(path string) (*Library, error) { return nil, ErrUnsupported }

func (l *Library) Path() string { return "" }

func (l *Library) Symbol(name string) (uintptr, error) { return 0, ErrUnsupported }

func (l *Library) Close() error { return nil }
