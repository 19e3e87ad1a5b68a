package base

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"
)

// MergeType specifies how several tensors are combined into one.
type MergeType int

const (
	// MergeCat concatenates along the channel dimension.
	MergeCat MergeType = iota
	// MergeSum adds element-wise. All tensors must have the same shape.
	MergeSum
)

func (m MergeType) String() string {
	switch m {
	case MergeCat:
		return "cat"
	case MergeSum:
		return "sum"
	default:
		return fmt.Sprintf("MergeType(%d)", int(m))
	}
}

// merge combines xs according to the merge type. Input tensors are not dropped.
func merge(xs []*ts.Tensor, m MergeType) *ts.Tensor {
	switch m {
	case MergeSum:
		out := xs[0].MustShallowClone()
		for _, x := range xs[1:] {
			out = out.MustAdd(x, true)
		}
		return out
	default:
		return ts.MustCat(xs, 1)
	}
}

// Concurrent feeds the same input to all branches and merges their outputs.
type Concurrent struct {
	branches []ts.ModuleT
	merge    MergeType
}

// NewConcurrent creates a Concurrent module.
func NewConcurrent(m MergeType, branches ...ts.ModuleT) (*Concurrent, error) {
	if len(branches) == 0 {
		return nil, errors.New("concurrent: at least one branch is required")
	}
	if m != MergeCat && m != MergeSum {
		return nil, errors.Errorf("concurrent: unsupported merge type %v", m)
	}

	return &Concurrent{
		branches: branches,
		merge:    m,
	}, nil
}

// Len returns the number of branches.
func (c *Concurrent) Len() int {
	return len(c.branches)
}

// ForwardT implements ts.ModuleT for Concurrent.
func (c *Concurrent) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	outs := make([]*ts.Tensor, len(c.branches))
	for i, b := range c.branches {
		outs[i] = b.ForwardT(x, train)
	}

	res := merge(outs, c.merge)
	for _, o := range outs {
		o.MustDrop()
	}

	return res
}
