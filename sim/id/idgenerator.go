// Package id generates the identifiers used by the simulator for packets and
// routers.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator can generate IDs.
type Generator interface {
	// Generate an ID
	Generate() string
}

// NewSequentialGenerator returns a generator that produces "1", "2", ... in
// order. Two simulators built with sequential generators produce identical IDs
// for identical runs.
func NewSequentialGenerator() Generator {
	return &sequentialGenerator{}
}

// NewPrefixedGenerator returns a sequential generator whose IDs carry a prefix,
// for example "r1", "r2".
func NewPrefixedGenerator(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix}
}

// NewXIDGenerator returns a generator backed by xid. The IDs are globally
// unique but not deterministic.
func NewXIDGenerator() Generator {
	return xidGenerator{}
}

type sequentialGenerator struct {
	prefix string
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return g.prefix + strconv.FormatUint(idNumber, 10)
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
