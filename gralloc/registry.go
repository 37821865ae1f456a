package gralloc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors
var (
	ErrModuleNotFound  = errors.New("gralloc: module not found")
	ErrModuleExists    = errors.New("gralloc: module already registered")
	ErrInvalidModuleID = errors.New("gralloc: invalid module id")
)

// OpenFunc opens a module. It is called at most once per Registry.
type OpenFunc func() (Module, error)

// Registry resolves allocator modules by id.
//
// Modules are opened on first use and stay open until the registry is halted;
// every Open for the same id returns the same Module.
type Registry struct {
	mu      sync.Mutex
	openers map[string]OpenFunc
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		openers: make(map[string]OpenFunc),
		modules: make(map[string]Module),
	}
}

// Register a module opener under id.
func (r *Registry) Register(id string, open OpenFunc) error {
	if id == "" || open == nil {
		return ErrInvalidModuleID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.openers[id]; ok {
		return fmt.Errorf("%w: %q", ErrModuleExists, id)
	}
	r.openers[id] = open
	return nil
}

// Open resolves the module registered under id.
func (r *Registry) Open(id string) (Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[id]; ok {
		return m, nil
	}
	open, ok := r.openers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, id)
	}
	m, err := open()
	if err != nil {
		return nil, fmt.Errorf("gralloc: open module %q: %w", id, err)
	}
	r.modules[id] = m
	return m, nil
}

// IDs returns the registered module ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.openers))
	for id := range r.openers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Halt halts every opened module. Modules are reopened by the next Open.
func (r *Registry) Halt() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, m := range r.modules {
		if err := m.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("gralloc: halt module %q: %w", id, err))
		}
		delete(r.modules, id)
	}
	return errors.Join(errs...)
}
