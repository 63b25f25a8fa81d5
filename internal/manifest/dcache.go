package manifest

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"foreign/internal/sig"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores validated manifest payloads keyed by content digest, so
// repeated CLI runs over an unchanged manifest skip TOML parsing and
// signature validation. Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the flattened cache form of a validated manifest.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Library string

	// Parallel per-function slices, name order.
	Names      []string
	Symbols    []string
	Signatures []string

	CheckErrno     []bool
	ReleaseRuntime []bool
}

// OpenDiskCache initializes and returns a disk cache at the standard
// location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt returns a disk cache rooted at dir, for tests and
// non-standard layouts.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "manifests", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace.
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache. A missing entry
// or a schema mismatch is a miss, not an error.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// ToDiskPayload flattens a manifest for caching.
func (m *Manifest) ToDiskPayload() *DiskPayload {
	p := &DiskPayload{
		Schema:  diskCacheSchemaVersion,
		Library: m.Library,
	}
	for _, f := range m.Functions {
		p.Names = append(p.Names, f.Name)
		p.Symbols = append(p.Symbols, f.Symbol)
		p.Signatures = append(p.Signatures, f.Signature.String())
		p.CheckErrno = append(p.CheckErrno, f.Options.CheckErrno)
		p.ReleaseRuntime = append(p.ReleaseRuntime, f.Options.ReleaseRuntime)
	}
	return p
}

// FromDiskPayload rebuilds a manifest from its cached form. Signatures were
// validated before caching, so a parse failure here means the payload is
// corrupt and is treated as a miss by the caller.
func FromDiskPayload(p *DiskPayload, key Digest) (*Manifest, error) {
	m := &Manifest{Library: p.Library, ContentHash: key}
	for i, name := range p.Names {
		parsed, err := sig.Parse(p.Signatures[i])
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, Function{
			Name:      name,
			Symbol:    p.Symbols[i],
			Signature: parsed,
			Options: Options{
				CheckErrno:     p.CheckErrno[i],
				ReleaseRuntime: p.ReleaseRuntime[i],
			},
		})
	}
	return m, nil
}
