package base

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// Deconv2D is a 2D transposed convolution.
//
// The weight is stored as [cIn cOut k k], the layout libtorch's
// conv_transpose2d reads, so converted reference weights load as is.
type Deconv2D struct {
	Ws            *ts.Tensor
	Bs            *ts.Tensor // zeros, not a variable, when created without bias
	stride        []int64
	padding       []int64
	outputPadding []int64
	dilation      []int64
}

// NewDeconv2D creates Deconv2D with variables `weight` and `bias` under p.
func NewDeconv2D(p *nn.Path, cIn, cOut, ksize int64, cfg *ConvBlockConfig) *Deconv2D {
	ws := p.MustNewVar("weight", []int64{cIn, cOut, ksize, ksize}, nn.NewKaimingUniformInit())

	var bs *ts.Tensor
	if cfg.Bias {
		bs = p.MustNewVar("bias", []int64{cOut}, nn.NewConstInit(0))
	} else {
		bs = ts.MustZeros([]int64{cOut}, gotch.Float, p.Device())
	}

	return &Deconv2D{
		Ws:            ws,
		Bs:            bs,
		stride:        []int64{cfg.Stride, cfg.Stride},
		padding:       []int64{cfg.Padding, cfg.Padding},
		outputPadding: []int64{cfg.OutputPadding, cfg.OutputPadding},
		dilation:      []int64{cfg.Dilation, cfg.Dilation},
	}
}

// Forward implements ts.Module for Deconv2D.
// [bz cIn H W] => [bz cOut H' W'], H' = (H-1)*stride - 2*padding + dilation*(k-1) + outputPadding + 1
func (d *Deconv2D) Forward(x *ts.Tensor) *ts.Tensor {
	return ts.MustConvTranspose2d(x, d.Ws, d.Bs, d.stride, d.padding, d.outputPadding, 1, d.dilation)
}
