package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FormRegistry maps client form identifiers to Form instances. Entries expire
// after ttl of inactivity or when the registry is full. A form that is
// submitting when it leaves the LRU is held aside until it is asked for again
// or its submission ends, so the same id keeps resolving to the form that
// guards the running submission.
type FormRegistry struct {
	mu    sync.Mutex
	forms *expirable.LRU[string, *Form]

	pinMu  sync.Mutex
	pinned map[string]*Form
}

func NewFormRegistry(maxForms int, ttl time.Duration) *FormRegistry {
	r := &FormRegistry{pinned: make(map[string]*Form)}
	r.forms = expirable.NewLRU[string, *Form](maxForms, r.evicted, ttl)
	return r
}

// evicted runs under the LRU's lock; it must not call back into r.forms.
func (r *FormRegistry) evicted(id string, f *Form) {
	if !f.InFlight() {
		return
	}
	r.pinMu.Lock()
	r.pinned[id] = f
	r.pinMu.Unlock()
}

// Form returns the form registered under id, creating it on first use. An
// empty id yields a fresh form that is never shared.
func (r *FormRegistry) Form(id string) *Form {
	if id == "" {
		return NewForm()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.forms.Get(id); ok {
		return f
	}
	// An expired entry stays in the LRU until its sweep; removing it here runs
	// evicted so an in-flight form is pinned rather than overwritten.
	r.forms.Remove(id)

	f, ok := r.unpin(id)
	if !ok {
		f = NewForm()
	}
	r.forms.Add(id, f)
	return f
}

// unpin takes id out of the pinned set and drops pinned forms whose
// submission has ended.
func (r *FormRegistry) unpin(id string) (*Form, bool) {
	r.pinMu.Lock()
	defer r.pinMu.Unlock()

	f, ok := r.pinned[id]
	delete(r.pinned, id)
	for other, pf := range r.pinned {
		if !pf.InFlight() {
			delete(r.pinned, other)
		}
	}
	return f, ok
}

// Forget drops the form registered under id.
func (r *FormRegistry) Forget(id string) {
	r.forms.Remove(id)
	r.pinMu.Lock()
	delete(r.pinned, id)
	r.pinMu.Unlock()
}

// Len counts registered forms, pinned ones included.
func (r *FormRegistry) Len() int {
	n := r.forms.Len()
	r.pinMu.Lock()
	defer r.pinMu.Unlock()
	return n + len(r.pinned)
}
