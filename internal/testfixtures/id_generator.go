package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator produces predictable session identifiers such as "session-1".
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, defaulting to "session".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "session"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier. It is safe for concurrent use.
func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.counter.Add(1), 10)
}

// NextFunc returns Next as a function value suitable for service constructors.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() uint64 {
	return g.counter.Load()
}

// Reset restarts the sequence at 1.
func (g *IDGenerator) Reset() {
	g.counter.Store(0)
}
