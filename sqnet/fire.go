package sqnet

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/sqnet/base"
)

// FireBlock is a SqueezeNet fire module: a 1x1 squeeze convolution followed by
// parallel 1x1 and 3x3 expand convolutions whose outputs are concatenated.
// Ref: https://arxiv.org/abs/1602.07360
type FireBlock struct {
	conv     *base.ConvBlock
	branches *base.Concurrent
	activ    base.Activation
}

// NewFireBlock creates a FireBlock. cOut must be divisible by 8:
// squeeze width is cOut/8 and each expand branch yields cOut/2 channels.
func NewFireBlock(p *nn.Path, cIn, cOut int64, opts ...base.ConvOption) (*FireBlock, error) {
	if cOut <= 0 || cOut%8 != 0 {
		return nil, errors.Errorf("fire block: output channels must be a positive multiple of 8, got %d", cOut)
	}
	squeeze := cOut / 8
	expand := cOut / 2

	conv := base.Conv1x1Block(p.Sub("conv"), cIn, squeeze, opts...)

	// expand branches have no activation of their own.
	expandOpts := append(append([]base.ConvOption{}, opts...), base.WithActivation(base.NoActivation))
	bp := p.Sub("branches")
	branch1 := base.Conv1x1Block(bp.Sub("branch1"), squeeze, expand, expandOpts...)
	branch2 := base.Conv3x3Block(bp.Sub("branch2"), squeeze, expand, expandOpts...)
	branches, err := base.NewConcurrent(base.MergeCat, branch1, branch2)
	if err != nil {
		return nil, err
	}

	return &FireBlock{
		conv:     conv,
		branches: branches,
		activ:    base.ELU,
	}, nil
}

// ForwardT implements ts.ModuleT for FireBlock.
func (f *FireBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	sqz := f.conv.ForwardT(x, train)
	exp := f.branches.ForwardT(sqz, train)
	sqz.MustDrop()
	out := f.activ(exp)
	exp.MustDrop()

	return out
}

// DefaultDilations are the dilation rates of ParallelDilatedConv branches.
var DefaultDilations = []int64{1, 2, 3, 4}

// ParallelDilatedConv sums the outputs of 3x3 convolutions with different
// dilation rates. Padding equals dilation so the spatial size is kept.
type ParallelDilatedConv struct {
	branches *base.Concurrent
}

// NewParallelDilatedConv creates ParallelDilatedConv with one branch per
// dilation rate. Nil or empty dilations fall back to DefaultDilations.
func NewParallelDilatedConv(p *nn.Path, cIn, cOut int64, dilations []int64, opts ...base.ConvOption) (*ParallelDilatedConv, error) {
	if len(dilations) == 0 {
		dilations = DefaultDilations
	}

	bp := p.Sub("branches")
	modules := make([]ts.ModuleT, len(dilations))
	for i, d := range dilations {
		if d <= 0 {
			return nil, errors.Errorf("parallel dilated conv: invalid dilation %d", d)
		}
		branchOpts := append(append([]base.ConvOption{}, opts...), base.WithDilation(d))
		modules[i] = base.Conv3x3Block(bp.Sub(fmt.Sprintf("branch%d", i+1)), cIn, cOut, branchOpts...)
	}

	branches, err := base.NewConcurrent(base.MergeSum, modules...)
	if err != nil {
		return nil, err
	}

	return &ParallelDilatedConv{branches}, nil
}

// ForwardT implements ts.ModuleT for ParallelDilatedConv.
func (c *ParallelDilatedConv) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return c.branches.ForwardT(x, train)
}
