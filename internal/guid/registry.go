// Package guid tracks asset identifiers used within a single pack operation
// and generates fresh ones that collide with none of them.
//
// Identifiers are 32 lowercase hex characters: the 16 bytes of a random
// UUID without separators, the form asset sidecars store.
package guid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Length is the number of hex characters in an identifier.
const Length = 32

// DefaultMaxAttempts bounds how many candidates Generate tries before giving up.
const DefaultMaxAttempts = 64

// ErrExhausted is returned when Generate cannot find an unused identifier.
var ErrExhausted = errors.New("guid: no unused identifier found")

// Registry is the set of identifiers known to one pack operation.
// It is not safe for concurrent use.
type Registry struct {
	ids         map[string]struct{}
	random      io.Reader
	maxAttempts int
}

// Option configures a Registry.
type Option func(*Registry)

// WithRandom sets the entropy source used by Generate.
// Defaults to crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(reg *Registry) {
		reg.random = r
	}
}

// WithMaxAttempts sets how many candidates Generate tries on collision.
// Values below one use DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(reg *Registry) {
		reg.maxAttempts = n
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		ids:         make(map[string]struct{}),
		random:      rand.Reader,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.maxAttempts < 1 {
		reg.maxAttempts = DefaultMaxAttempts
	}
	return reg
}

// Register adds id to the registry.
// It returns false if id was already present.
func (r *Registry) Register(id string) bool {
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Generate returns a fresh identifier distinct from every registered one
// and registers it.
func (r *Registry) Generate() (string, error) {
	for range r.maxAttempts {
		u, err := uuid.NewRandomFromReader(r.random)
		if err != nil {
			return "", fmt.Errorf("guid: read entropy: %w", err)
		}
		id := hex.EncodeToString(u[:])
		if r.Register(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// Valid reports whether s is a well-formed identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
