package generator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Payload format changes
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 over every input of a run.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Hasher accumulates labelled inputs into a Digest. Every field is length
// prefixed so adjacent values cannot collide.
type Hasher struct {
	h hash.Hash
}

func NewHasher() *Hasher {
	h := &Hasher{h: sha256.New()}
	h.String("hookgen-cache", fmt.Sprint(cacheSchemaVersion))
	return h
}

func (h *Hasher) Bytes(label string, data []byte) {
	var n [8]byte
	for _, part := range [][]byte{[]byte(label), data} {
		binary.LittleEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.h.Write(n[:])
		_, _ = h.h.Write(part)
	}
}

func (h *Hasher) String(label, s string) { h.Bytes(label, []byte(s)) }

// File hashes the contents of path under its name.
func (h *Hasher) File(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h.Bytes("file:"+filepath.ToSlash(path), data)
	return nil
}

func (h *Hasher) Sum() Digest {
	var out Digest
	copy(out[:], h.h.Sum(nil))
	return out
}

// Cache stores rendered artifacts keyed by the Digest of their inputs.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is one cache entry.
type Payload struct {
	Schema  uint16    `msgpack:"schema"`
	Key     string    `msgpack:"key"`
	Created time.Time `msgpack:"created"`
	Classes []string  `msgpack:"classes"`
	Files   []File    `msgpack:"files"`
}

// OpenCache opens the cache at dir, or under the user cache directory when
// dir is empty.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "hookgen")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "runs", key.String()+".mp")
}

// Put serializes and writes a payload to the cache.
func (c *Cache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = cacheSchemaVersion
	payload.Key = key.String()
	if payload.Created.IsZero() {
		payload.Created = time.Now().UTC()
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}
	return writeAtomic(c.pathFor(key), data)
}

// Get reads the payload stored under key. A missing entry, or one written
// by another schema version, is a miss.
func (c *Cache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if out.Schema != cacheSchemaVersion || out.Key != key.String() {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
