package rulegroup

import "sync/atomic"

// IDGenerator hands out session-local identifiers for mapped groups and
// rules. IDs are only meaningful within the view that produced them.
//
// The zero value is ready to use; the first ID is 1.
type IDGenerator struct {
	last atomic.Int64
}

// NewIDGenerator creates a generator starting at 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() int {
	return int(g.last.Add(1))
}
