// The counter package provides the durable dispensation counter.
// Each dispensation attempt gets the next value of a process-wide monotonic
// sequence, checkpointed to a small JSON file so it survives restarts.
package counter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/crypto/sha3"
)

// checkpoint is the on-disk representation of the counter.
type checkpoint struct {
	Counter uint64 `json:"counter"`
}

// Counter is a monotonically increasing sequence backed by a file checkpoint.
// The in-memory value is authoritative for the process lifetime; every
// increment is persisted synchronously so the checkpoint and the cached value
// never diverge across a crash.
type Counter struct {
	mu    sync.Mutex
	value uint64
	path  string
}

// New loads the counter checkpointed at the given path.
// A missing file is not an error and starts the sequence at zero.
func New(path string) (*Counter, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Counter{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("counter: failed to read checkpoint: %w", err)
	}

	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("counter: failed to parse checkpoint at %s: %w", path, err)
	}
	return &Counter{path: path, value: cp.Counter}, nil
}

// Value returns the current counter value without advancing it.
func (c *Counter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Next advances the sequence by one, persists the new value, and returns it.
// If persisting fails the in-memory value is rolled back, so a later retry
// observes the same sequence as the checkpoint.
func (c *Counter) Next() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.value + 1
	if err := c.persist(next); err != nil {
		return 0, fmt.Errorf("counter: failed to persist: %w", err)
	}
	c.value = next
	return next, nil
}

// persist writes the checkpoint with a temp-file rename, never a partial write.
func (c *Counter) persist(value uint64) error {
	data, err := json.Marshal(checkpoint{Counter: value})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "counter-*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

// Receipt derives the stable receipt hash for the given counter value:
// the hex-encoded SHA3-256 digest of its decimal string form.
func Receipt(n uint64) string {
	sum := sha3.Sum256([]byte(strconv.FormatUint(n, 10)))
	return hex.EncodeToString(sum[:])
}
