package core

import "sync"

// Shared lazily materializes a value on the first Acquire and destroys it
// when the last Ref is released. The next Acquire after that builds a
// fresh value. Shared itself only observes the value, it never keeps it
// alive on its own.
//
// create and destroy run without holding the state lock, so they (and the
// Observe hooks) may query the Shared they belong to.
type Shared[T any] struct {
	// serializes create and destroy
	lifecycle sync.Mutex

	mu         sync.Mutex
	value      *T
	refs       int
	generation uint64
	create     func() (*T, error)
	destroy    func(*T) error

	onCreated   func(*T)
	onDestroyed func(*T)
}

// Ref is one owner of a Shared value.
type Ref[T any] struct {
	owner    *Shared[T]
	value    *T
	released bool
	mu       sync.Mutex
}

func NewShared[T any](create func() (*T, error), destroy func(*T) error) *Shared[T] {
	return &Shared[T]{
		create:  create,
		destroy: destroy,
	}
}

// Observe sets hooks run after a value was constructed or destroyed, once
// every lock is released. It must be called before the first Acquire.
func (s *Shared[T]) Observe(created, destroyed func(*T)) *Shared[T] {
	s.onCreated = created
	s.onDestroyed = destroyed
	return s
}

// Acquire returns a new reference, constructing the value if none is alive.
// A failed construction leaves nothing behind.
func (s *Shared[T]) Acquire() (*Ref[T], error) {
	s.lifecycle.Lock()
	s.mu.Lock()
	if v := s.value; v != nil {
		s.refs++
		s.mu.Unlock()
		s.lifecycle.Unlock()
		return &Ref[T]{owner: s, value: v}, nil
	}
	s.mu.Unlock()

	v, err := s.create()
	if err != nil {
		s.lifecycle.Unlock()
		return nil, err
	}
	s.mu.Lock()
	s.value = v
	s.generation++
	s.refs++
	s.mu.Unlock()
	s.lifecycle.Unlock()

	if s.onCreated != nil {
		s.onCreated(v)
	}
	return &Ref[T]{owner: s, value: v}, nil
}

// Alive reports whether a value currently exists.
func (s *Shared[T]) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value != nil
}

func (s *Shared[T]) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Generation counts how many values have been constructed so far.
func (s *Shared[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Shared[T]) release() error {
	s.lifecycle.Lock()
	s.mu.Lock()
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		s.lifecycle.Unlock()
		return nil
	}
	v := s.value
	s.value = nil
	s.refs = 0
	s.mu.Unlock()
	if v == nil {
		s.lifecycle.Unlock()
		return nil
	}

	var err error
	if s.destroy != nil {
		err = s.destroy(v)
	}
	s.lifecycle.Unlock()

	if s.onDestroyed != nil {
		s.onDestroyed(v)
	}
	return err
}

func (r *Ref[T]) Get() *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	return r.value
}

// Release drops this reference. Only the first call has an effect.
func (r *Ref[T]) Release() error {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return nil
	}
	r.released = true
	r.value = nil
	r.mu.Unlock()
	return r.owner.release()
}
