package base

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// Identity is a nn.ModuleT placeholder.
// It forwards the input tensor as such.
type Identity struct{}

// ForwardT implement nn.ModuleT for Identity struct.
func (i *Identity) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return x.MustShallowClone()
}

// NewIdentity creates a new Identity struct.
func NewIdentity() *Identity {
	return &Identity{}
}

// Activation is a non-parametric tensor function applied after a convolution.
// A nil Activation means no activation.
type Activation func(x *ts.Tensor) *ts.Tensor

// ELU is the exponential linear unit with alpha = 1.
func ELU(x *ts.Tensor) *ts.Tensor {
	return x.MustElu(false)
}

// ReLU is the rectified linear unit.
func ReLU(x *ts.Tensor) *ts.Tensor {
	return x.MustRelu(false)
}

// NoActivation leaves the convolution output untouched.
var NoActivation Activation

// MaxPool is a max-pooling layer with square kernel and no padding.
type MaxPool struct {
	ksize  int64
	stride int64
}

// ForwardT implements ts.ModuleT for MaxPool.
func (m *MaxPool) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	// ksize; stride; padding=0; dilation=1; ceil=false
	return x.MustMaxPool2d([]int64{m.ksize, m.ksize}, []int64{m.stride, m.stride}, []int64{0, 0}, []int64{1, 1}, false, false)
}

// NewMaxPool2x2 creates a pool that halves height and width: [B C H W] => [B C H/2 W/2]
func NewMaxPool2x2() *MaxPool {
	return &MaxPool{ksize: 2, stride: 2}
}

// ConvBlockConfig holds options of a ConvBlock.
type ConvBlockConfig struct {
	Kernel        int64
	Stride        int64
	Padding       int64
	OutputPadding int64 // only used by transposed convolutions
	Dilation      int64
	Bias          bool
	UseBN         bool
	BNEps         float64
	Activation    Activation
	Transposed    bool
}

// DefaultConvBlockConfig returns a config for a `same` padded convolution
// with bias, no batch-norm and ReLU activation.
func DefaultConvBlockConfig(ksize int64) *ConvBlockConfig {
	return &ConvBlockConfig{
		Kernel:     ksize,
		Stride:     1,
		Padding:    ksize / 2,
		Dilation:   1,
		Bias:       true,
		UseBN:      false,
		BNEps:      1e-5,
		Activation: ReLU,
	}
}

// ConvOption modifies a ConvBlockConfig.
type ConvOption func(*ConvBlockConfig)

// WithStride sets the convolution stride.
func WithStride(stride int64) ConvOption {
	return func(c *ConvBlockConfig) {
		c.Stride = stride
	}
}

// WithPadding sets the convolution padding.
func WithPadding(padding int64) ConvOption {
	return func(c *ConvBlockConfig) {
		c.Padding = padding
	}
}

// WithDilation sets dilation and a matching padding so that a 3x3
// convolution keeps the spatial size.
func WithDilation(dilation int64) ConvOption {
	return func(c *ConvBlockConfig) {
		c.Dilation = dilation
		c.Padding = dilation * (c.Kernel / 2)
	}
}

// WithBias switches the convolution bias on or off.
func WithBias(bias bool) ConvOption {
	return func(c *ConvBlockConfig) {
		c.Bias = bias
	}
}

// WithBN switches the batch-normalization layer on or off.
func WithBN(useBN bool) ConvOption {
	return func(c *ConvBlockConfig) {
		c.UseBN = useBN
	}
}

// WithActivation sets the activation. Pass NoActivation to drop it.
func WithActivation(act Activation) ConvOption {
	return func(c *ConvBlockConfig) {
		c.Activation = act
	}
}

// ConvBlock is a convolution followed by an optional batch-norm and an
// optional activation.
type ConvBlock struct {
	conv       ts.Module
	bn         *nn.BatchNorm
	activation Activation
}

// ForwardT implements ts.ModuleT for ConvBlock.
func (b *ConvBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	out := b.conv.Forward(x)
	if b.bn != nil {
		bn := b.bn.ForwardT(out, train)
		out.MustDrop()
		out = bn
	}
	if b.activation != nil {
		act := b.activation(out)
		out.MustDrop()
		out = act
	}

	return out
}

// NewConvBlock creates a ConvBlock. Variables are stored at `conv` and `bn`
// under the given path. Transposed blocks use Deconv2D.
func NewConvBlock(p *nn.Path, cIn, cOut int64, cfg *ConvBlockConfig) *ConvBlock {
	var conv ts.Module
	if cfg.Transposed {
		conv = NewDeconv2D(p.Sub("conv"), cIn, cOut, cfg.Kernel, cfg)
	} else {
		config := nn.DefaultConv2DConfig()
		config.Stride = []int64{cfg.Stride, cfg.Stride}
		config.Padding = []int64{cfg.Padding, cfg.Padding}
		config.Dilation = []int64{cfg.Dilation, cfg.Dilation}
		config.Bias = cfg.Bias
		conv = nn.NewConv2D(p.Sub("conv"), cIn, cOut, cfg.Kernel, config)
	}

	var bn *nn.BatchNorm
	if cfg.UseBN {
		bnConfig := nn.DefaultBatchNormConfig()
		bnConfig.Eps = cfg.BNEps
		bn = nn.BatchNorm2D(p.Sub("bn"), cOut, bnConfig)
	}

	return &ConvBlock{
		conv:       conv,
		bn:         bn,
		activation: cfg.Activation,
	}
}

func buildConfig(ksize int64, opts []ConvOption) *ConvBlockConfig {
	cfg := DefaultConvBlockConfig(ksize)
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// Conv1x1Block creates a 1x1 ConvBlock.
func Conv1x1Block(p *nn.Path, cIn, cOut int64, opts ...ConvOption) *ConvBlock {
	return NewConvBlock(p, cIn, cOut, buildConfig(1, opts))
}

// Conv3x3Block creates a 3x3 ConvBlock with padding 1.
func Conv3x3Block(p *nn.Path, cIn, cOut int64, opts ...ConvOption) *ConvBlock {
	return NewConvBlock(p, cIn, cOut, buildConfig(3, opts))
}

// Deconv3x3Block creates a 3x3 transposed ConvBlock with padding 1 and output
// padding stride-1, so the output is `stride` times larger. With stride 2 it
// doubles height and width.
func Deconv3x3Block(p *nn.Path, cIn, cOut int64, opts ...ConvOption) *ConvBlock {
	cfg := buildConfig(3, opts)
	cfg.Transposed = true
	cfg.OutputPadding = cfg.Stride - 1

	return NewConvBlock(p, cIn, cOut, cfg)
}
