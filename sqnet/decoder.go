package sqnet

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/sqnet/base"
)

// UpStage is a decoder stage: a channel preserving convolution (a plain 3x3
// block or a ParallelDilatedConv) followed by a stride 2 3x3 deconvolution
// that doubles height and width.
type UpStage struct {
	conv   ts.ModuleT
	deconv *base.ConvBlock
}

// NewUpStage creates an UpStage.
// [bz cIn H W] => [bz cOut 2H 2W]
func NewUpStage(p *nn.Path, cIn, cOut int64, dilations []int64, parallel bool, opts ...base.ConvOption) (*UpStage, error) {
	var conv ts.ModuleT
	if parallel {
		pdc, err := NewParallelDilatedConv(p.Sub("conv"), cIn, cIn, dilations, opts...)
		if err != nil {
			return nil, err
		}
		conv = pdc
	} else {
		conv = base.Conv3x3Block(p.Sub("conv"), cIn, cIn, opts...)
	}

	deconvOpts := append(append([]base.ConvOption{}, opts...), base.WithStride(2))
	deconv := base.Deconv3x3Block(p.Sub("deconv"), cIn, cOut, deconvOpts...)

	return &UpStage{
		conv:   conv,
		deconv: deconv,
	}, nil
}

// ForwardT implements ts.ModuleT for UpStage.
func (u *UpStage) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	c := u.conv.ForwardT(x, train)
	out := u.deconv.ForwardT(c, train)
	c.MustDrop()

	return out
}
