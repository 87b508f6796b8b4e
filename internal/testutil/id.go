// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator yields deterministic submission IDs for tests.
//
// Unlike the production generator, which returns random UUIDs, this
// generator returns "{prefix}-00000001", "{prefix}-00000002", and so on.
// The same test with the same generator produces byte-identical records,
// which enables golden comparison of store contents.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
// An empty prefix defaults to "test".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next ID in sequence.
//
// Implements the cli.IDGenerator interface.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%08d", g.prefix, g.n)
}

// Reset restarts the sequence. The next call to NewID returns
// "{prefix}-00000001" again.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
