package services

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces run identifiers
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs
type UUIDGenerator struct{}

// NewID returns a new random UUID string
func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// SequentialIDs issues prefix-1, prefix-2, ... for reproducible runs
type SequentialIDs struct {
	Prefix string
	next   atomic.Int64
}

// NewID returns the next identifier in the sequence
func (s *SequentialIDs) NewID() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.next.Add(1))
}
