package operators

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps operator names to operators.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operator
}

// NewRegistry creates a registry holding ops.
func NewRegistry(ops ...Operator) *Registry {
	r := &Registry{ops: make(map[string]Operator, len(ops))}
	for _, op := range ops {
		r.ops[op.Name()] = op
	}

	return r
}

// Default returns a registry with every built-in operator.
func Default() *Registry {
	return NewRegistry(
		NewArithmetic(),
		NewBoolean(),
		NewBranch(),
		NewComparison(),
		NewLogical(),
		NewNumbers(),
	)
}

// Register adds op. Names must be unique.
func (r *Registry) Register(op Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Name()]; exists {
		return fmt.Errorf("operator %q already registered", op.Name())
	}

	r.ops[op.Name()] = op

	return nil
}

// Get returns the named operator or an error wrapping ErrUnknownOperator.
func (r *Registry) Get(name string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}

	return op, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Select resolves names, or every operator when names is empty.
func (r *Registry) Select(names ...string) ([]Operator, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	ops := make([]Operator, 0, len(names))

	for _, name := range names {
		op, err := r.Get(name)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	return ops, nil
}
