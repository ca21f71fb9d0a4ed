// Package capture runs a live IRLogger capture: one byte source feeding one
// parser, with at most one capture active per Registry.
package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyActive is returned by Acquire while another lease is held.
var ErrAlreadyActive = errors.New("Only a single instance of the Logger should be active at the same time.")

// Registry grants at most one Lease at a time. The zero value is ready to use.
type Registry struct {
	mu     sync.Mutex
	active *Lease
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Lease is proof of being the active capture. Release it when done.
type Lease struct {
	registry *Registry
	id       uuid.UUID
	owner    string
	acquired time.Time
	once     sync.Once
}

// Acquire returns a new Lease, or ErrAlreadyActive if one is outstanding.
func (r *Registry) Acquire(owner string) (*Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrAlreadyActive
	}

	l := &Lease{
		registry: r,
		id:       uuid.New(),
		owner:    owner,
		acquired: time.Now(),
	}
	r.active = l
	return l, nil
}

// Active returns the outstanding lease, if any.
func (r *Registry) Active() (*Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != nil
}

// ID uniquely identifies the lease.
func (l *Lease) ID() uuid.UUID { return l.id }

// Owner is the name given to Acquire.
func (l *Lease) Owner() string { return l.owner }

// Acquired is when the lease was granted.
func (l *Lease) Acquired() time.Time { return l.acquired }

// Release gives the lease back. Calling it more than once is harmless.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.registry.mu.Lock()
		defer l.registry.mu.Unlock()
		if l.registry.active == l {
			l.registry.active = nil
		}
	})
}
