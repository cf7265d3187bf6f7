package ndarray

// Softmax computes a numerically stable softmax along axis (a negative
// axis counts from the end, so -1 is the last axis), subtracting the
// per-slice max before exponentiating.
func (a *NdArray) Softmax(axis int) (*NdArray, error) {
	ax, err := resolveAxis(axis, a.shape.Rank())
	if err != nil {
		return nil, err
	}
	maxVals, err := a.MaxAxis(ax)
	if err != nil {
		return nil, err
	}
	maxBroadcast, err := maxVals.BroadcastTo(a.shape)
	if err != nil {
		return nil, err
	}
	shifted, err := a.Sub(maxBroadcast)
	if err != nil {
		return nil, err
	}
	exps := shifted.Exp()
	sums, err := exps.SumAxis(ax)
	if err != nil {
		return nil, err
	}
	sumsBroadcast, err := sums.BroadcastTo(a.shape)
	if err != nil {
		return nil, err
	}
	return exps.Div(sumsBroadcast)
}
