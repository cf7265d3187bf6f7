// Package nn implements Module/Parameter hierarchical composition: named
// sub-module/parameter/buffer registration, pre-order named traversal, a
// recursive training-mode flag, and the initializer registry every
// concrete layer constructor draws from.
package nn

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// Parameter is a Variable that requires grad and is owned by exactly one
// Module (spec.md §3 Parameter: "Variable subtype with requires_grad=true
// and an externally owned buffer; registered by name in its owning
// Module").
type Parameter = autograd.Variable

// NewParameter wraps value as a leaf, grad-requiring Variable.
func NewParameter(value *ndarray.NdArray, name string) *Parameter {
	return autograd.NewVariable(value, true, name)
}

// Module is a tree node: a name, ordered registries of named sub-modules,
// parameters and buffers, and a training flag. Concrete layers embed
// *Module and implement their own Forward method; Module itself carries
// no forward logic (spec.md §4.4 names Forward as an abstract method of
// subclasses, which Go expresses as composition rather than inheritance).
type Module struct {
	name       string
	training   bool
	subModules *orderedmap.OrderedMap[string, *Module]
	parameters *orderedmap.OrderedMap[string, *Parameter]
	buffers    *orderedmap.OrderedMap[string, *ndarray.NdArray]
}

// NewModule constructs an empty Module named name.
func NewModule(name string) *Module {
	return &Module{
		name:       name,
		subModules: orderedmap.New[string, *Module](),
		parameters: orderedmap.New[string, *Parameter](),
		buffers:    orderedmap.New[string, *ndarray.NdArray](),
	}
}

// Name returns the module's own (unqualified) name.
func (m *Module) Name() string { return m.name }

// RegisterModule registers a sub-module under name. Rejects duplicate
// names (spec.md §4.4 invariant).
func (m *Module) RegisterModule(name string, child *Module) error {
	if _, present := m.subModules.Get(name); present {
		return errs.New(errs.KindArgumentInvalid, "sub-module %q already registered under %q", name, m.name)
	}
	m.subModules.Set(name, child)
	return nil
}

// RegisterParameter registers a Parameter under name.
func (m *Module) RegisterParameter(name string, p *Parameter) error {
	if _, present := m.parameters.Get(name); present {
		return errs.New(errs.KindArgumentInvalid, "parameter %q already registered under %q", name, m.name)
	}
	m.parameters.Set(name, p)
	return nil
}

// RegisterBuffer registers a non-trainable NdArray (e.g. a KV-cache slot
// or running statistic) under name.
func (m *Module) RegisterBuffer(name string, buf *ndarray.NdArray) error {
	if _, present := m.buffers.Get(name); present {
		return errs.New(errs.KindArgumentInvalid, "buffer %q already registered under %q", name, m.name)
	}
	m.buffers.Set(name, buf)
	return nil
}

// Buffer looks up a buffer registered directly on this module.
func (m *Module) Buffer(name string) (*ndarray.NdArray, bool) {
	return m.buffers.Get(name)
}

// SetTraining sets the training flag on this module and every descendant.
func (m *Module) SetTraining(training bool) {
	m.training = training
	for pair := m.subModules.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.SetTraining(training)
	}
}

// Training reports the current training flag.
func (m *Module) Training() bool { return m.training }

// Context returns the autograd Context matching this module's current
// training flag, for use in forward passes.
func (m *Module) Context() autograd.Context {
	return autograd.Context{Training: m.training}
}

// NamedParameters walks the module tree pre-order and returns every
// parameter keyed by its dot-joined path from prefix.
func (m *Module) NamedParameters(prefix string) *orderedmap.OrderedMap[string, *Parameter] {
	out := orderedmap.New[string, *Parameter]()
	m.collectParameters(prefix, out)
	return out
}

func (m *Module) collectParameters(prefix string, out *orderedmap.OrderedMap[string, *Parameter]) {
	for pair := m.parameters.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(joinPath(prefix, pair.Key), pair.Value)
	}
	for pair := m.subModules.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.collectParameters(joinPath(prefix, pair.Key), out)
	}
}

// NamedBuffers walks the module tree pre-order and returns every buffer
// keyed by its dot-joined path from prefix.
func (m *Module) NamedBuffers(prefix string) *orderedmap.OrderedMap[string, *ndarray.NdArray] {
	out := orderedmap.New[string, *ndarray.NdArray]()
	m.collectBuffers(prefix, out)
	return out
}

func (m *Module) collectBuffers(prefix string, out *orderedmap.OrderedMap[string, *ndarray.NdArray]) {
	for pair := m.buffers.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(joinPath(prefix, pair.Key), pair.Value)
	}
	for pair := m.subModules.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.collectBuffers(joinPath(prefix, pair.Key), out)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
