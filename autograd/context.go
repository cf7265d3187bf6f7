// Package autograd implements the reverse-mode automatic-differentiation
// graph: Variable nodes, the Function primitive-op contract, and the
// generation-ordered backward traversal.
package autograd

// Context threads the ambient training flag through forward calls,
// instead of a package-level global (spec.md §9 design note / §5: "Prefer
// threading a small Context{training: bool}"). Training gates both graph
// construction (Call only records a creator when Training is true) and,
// for Functions that look at it (dropout, MoE noisy gating), stochastic
// behavior.
type Context struct {
	Training bool
}

// Eval is the zero-value-equivalent inference context.
func Eval() Context { return Context{Training: false} }

// Train is the training context.
func Train() Context { return Context{Training: true} }
