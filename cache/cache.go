// Package cache persists per-file content digests between builds.
//
// The build walker notifies the cache of every shader file it visits; the
// cache hashes the file and, once flushed, can tell a later build which files
// changed since. It never influences the walk itself: the pipeline stays
// non-incremental, the cache only records and reports.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// FileName is the cache file written under the output directory.
const FileName = "weslbuild.cache.mp"

// Increment when the payload format changes.
const schemaVersion uint16 = 1

// Digest is a sha256 content hash.
type Digest [sha256.Size]byte

type payload struct {
	Schema uint16
	Files  []fileDigest
}

type fileDigest struct {
	Path   string
	Digest Digest
}

// Cache tracks file digests for one build. It implements the walker's
// Notifier contract.
type Cache struct {
	path    string
	known   map[string]Digest // from the previous flushed build
	touched map[string]Digest // recorded during this build
	err     error             // first hashing failure, surfaced on Flush
}

// Open loads the cache file under dir, starting fresh when the file is
// missing or carries an unknown schema.
func Open(dir string) (*Cache, error) {
	c := &Cache{
		path:    filepath.Join(dir, FileName),
		known:   make(map[string]Digest),
		touched: make(map[string]Digest),
	}
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to open cache %q: %w", c.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var p payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		// A corrupt cache only costs change reporting; start fresh.
		return c, nil
	}
	if p.Schema != schemaVersion {
		return c, nil
	}
	for _, fd := range p.Files {
		c.known[fd.Path] = fd.Digest
	}
	return c, nil
}

// FileTouched records the current digest of path. Hashing failures are
// remembered and surfaced by Flush, since the walker's notification channel
// carries no error.
func (c *Cache) FileTouched(path string) {
	// #nosec G304 -- path comes from the build walker
	data, err := os.ReadFile(path)
	if err != nil {
		if c.err == nil {
			c.err = fmt.Errorf("failed to hash %q: %w", path, err)
		}
		return
	}
	c.touched[path] = sha256.Sum256(data)
}

// Changed reports whether path's content differs from the previous flushed
// build. Unknown files count as changed.
func (c *Cache) Changed(path string) bool {
	cur, ok := c.touched[path]
	if !ok {
		return true
	}
	prev, ok := c.known[path]
	if !ok {
		return true
	}
	return cur != prev
}

// Touched returns the paths recorded during this build, sorted.
func (c *Cache) Touched() []string {
	paths := make([]string, 0, len(c.touched))
	for p := range c.touched {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Flush atomically rewrites the cache file with this build's digests.
func (c *Cache) Flush() error {
	if c.err != nil {
		return c.err
	}
	p := payload{Schema: schemaVersion}
	for _, path := range c.Touched() {
		p.Files = append(p.Files, fileDigest{Path: path, Digest: c.touched[path]})
	}

	f, err := os.CreateTemp(filepath.Dir(c.path), "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache %q: %w", c.path, err)
	}
	return nil
}
