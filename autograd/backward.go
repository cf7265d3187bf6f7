package autograd

import (
	"github.com/emirpasic/gods/v2/queues/priorityqueue"

	"github.com/tensorforge/core/ndarray"
)

// callComparator orders calls by descending generation (so the
// priority queue, which pops the "smallest" element first, pops the
// highest generation first), breaking ties by insertion sequence so
// traversal is deterministic for a given forward sequence (spec.md §5).
func callComparator(a, b *call) int {
	if a.generation != b.generation {
		return b.generation - a.generation
	}
	if a.seq < b.seq {
		return -1
	}
	if a.seq > b.seq {
		return 1
	}
	return 0
}

// Backward runs reverse-mode autodiff from v, which must be a scalar
// output (or any Variable — a non-scalar seed of all-ones matching its
// shape is used, matching spec.md §4.2 step 1).
func (v *Variable) Backward() error {
	if v.Grad == nil {
		v.Grad = ndarray.Ones(v.Value.Shape())
	}

	pq := priorityqueue.NewWith(callComparator)
	enqueued := make(map[*call]bool)

	if v.creator != nil {
		pq.Enqueue(v.creator)
		enqueued[v.creator] = true
	}

	for !pq.Empty() {
		c, ok := pq.Dequeue()
		if !ok {
			break
		}

		gradOutputs := make([]*ndarray.NdArray, len(c.outputs))
		for i, out := range c.outputs {
			gradOutputs[i] = out.Grad
		}

		gradInputs, err := c.fn.Backward(gradOutputs)
		if err != nil {
			return err
		}

		for i, in := range c.inputs {
			if i >= len(gradInputs) || gradInputs[i] == nil {
				continue
			}
			if !in.RequiresGrad {
				continue
			}
			if in.Grad == nil {
				in.Grad = gradInputs[i]
			} else {
				accumulated, err := in.Grad.Add(gradInputs[i])
				if err != nil {
					return err
				}
				in.Grad = accumulated
			}
			if in.creator != nil && !enqueued[in.creator] {
				enqueued[in.creator] = true
				pq.Enqueue(in.creator)
			}
		}
	}
	return nil
}
