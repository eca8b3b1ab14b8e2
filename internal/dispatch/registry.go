package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnbalancedScope indicates a Deactivate with no matching Activate.
	// This is a programmer error: it means some region believed it was
	// running under the invariant kernels when it was not.
	ErrUnbalancedScope = errors.New("dispatch: deactivate without matching activate")

	// ErrDuplicateOp indicates the same operation identity was registered
	// twice while building a registry.
	ErrDuplicateOp = errors.New("dispatch: duplicate operation registration")
)

// entry holds both routing targets for one operation identity. The mapping
// never changes after construction; activation only flips current.
type entry struct {
	standard  any
	invariant any
	current   atomic.Value
}

// Registry is the process-wide strategy table mapping operation identities
// to their standard and batch-invariant implementations, together with the
// nesting state of the scoped mode.
//
// The per-call resolve path reads one atomic pointer and takes no lock;
// scope transitions serialise on mu. Scope changes happen at coarse
// granularity (typically once per served request), so contention is rare.
type Registry struct {
	mu     sync.Mutex
	depth  int
	pinned bool

	entries [opCount]*entry
}

// New builds a registry with the default bindings: the standard tensor
// implementations and the invariant kernels. Duplicate registration is a
// configuration error surfaced before any kernel can run.
func New() (*Registry, error) {
	r := &Registry{}
	bindings := []struct {
		op                  Op
		standard, invariant any
	}{
		{OpMatMul, MatMulFunc(standardMatMul), MatMulFunc(invariantMatMul)},
		{OpMatMulBias, MatMulBiasFunc(standardMatMulBias), MatMulBiasFunc(invariantMatMulBias)},
		{OpLogSoftmax, LogSoftmaxFunc(standardLogSoftmax), LogSoftmaxFunc(invariantLogSoftmax)},
		{OpMean, MeanFunc(standardMean), MeanFunc(invariantMean)},
	}
	for _, b := range bindings {
		if err := r.register(b.op, b.standard, b.invariant); err != nil {
			return nil, err
		}
	}
	for _, e := range r.entries {
		if e == nil {
			return nil, errors.New("dispatch: incomplete registration")
		}
	}
	return r, nil
}

func (r *Registry) register(op Op, standard, invariant any) error {
	if op >= opCount {
		return fmt.Errorf("dispatch: unknown operation %d", op)
	}
	if r.entries[op] != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateOp, op)
	}
	e := &entry{standard: standard, invariant: invariant}
	e.current.Store(standard)
	r.entries[op] = e
	return nil
}

// install flips every entry to the requested routing target. Callers hold mu.
func (r *Registry) install(invariant bool) {
	for _, e := range r.entries {
		if invariant {
			e.current.Store(e.invariant)
		} else {
			e.current.Store(e.standard)
		}
	}
}

// Activate increments the nesting counter, installing the invariant
// implementations on the 0->1 transition. Any nested depth behaves
// identically to depth 1.
func (r *Registry) Activate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depth++
	if r.depth == 1 && !r.pinned {
		r.install(true)
	}
}

// Deactivate decrements the nesting counter, restoring the standard
// implementations on the 1->0 transition unless the mode is pinned.
// Calling it at depth 0 returns ErrUnbalancedScope.
func (r *Registry) Deactivate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.depth == 0 {
		return ErrUnbalancedScope
	}
	r.depth--
	if r.depth == 0 && !r.pinned {
		r.install(false)
	}
	return nil
}

// Scoped runs fn with invariant routing active when enabled is true,
// restoring the entry depth on every exit path including panics. With
// enabled false it runs fn with the routing state untouched.
func (r *Registry) Scoped(enabled bool, fn func() error) error {
	if !enabled {
		return fn()
	}
	r.Activate()
	defer func() {
		// Paired with the Activate above; failure means fn itself tore
		// down the scope, which is fatal misuse.
		if err := r.Deactivate(); err != nil {
			panic(err)
		}
	}()
	return fn()
}

// Enable pins or unpins invariant routing independently of the nesting
// counter. Worker processes that never exit a scope call Enable(true) once
// at startup. Repeated calls are idempotent and never corrupt the counter
// used by Scoped.
func (r *Registry) Enable(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinned == on {
		return
	}
	r.pinned = on
	if r.depth == 0 {
		r.install(on)
	}
}

// IsEnabled reports whether calls are currently routed through the
// invariant kernels.
func (r *Registry) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pinned || r.depth > 0
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New()
	if err != nil {
		// Registration is static; failing here means the binding table
		// itself is wrong. Fail fast before any kernel can run.
		panic(err)
	}
	return r
})

// Default returns the process-wide registry, constructed on first use.
func Default() *Registry {
	return defaultRegistry()
}
