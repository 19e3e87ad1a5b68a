package sqnet

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
	"k8s.io/klog/v2"

	"github.com/sugarme/sqnet/base"
)

// Config holds SQNet hyperparameters.
type Config struct {
	InChannels        int64
	InSize            [2]int64 // height, width
	NumClasses        int64
	InitBlockChannels int64
	DownChannels      []int64 // output channels of each encoder stage
	UpChannels        []int64 // output channels of each decoder stage, deepest first
	Layers            []int64 // fire blocks per encoder stage
	Dilations         []int64 // dilation rates of the bottleneck ParallelDilatedConv
	Bias              bool
	UseBN             bool
	Activation        base.Activation
}

// DefaultConfig returns the Cityscapes configuration: 19 classes at 1024x2048.
func DefaultConfig() *Config {
	return &Config{
		InChannels:        3,
		InSize:            [2]int64{1024, 2048},
		NumClasses:        19,
		InitBlockChannels: 96,
		DownChannels:      []int64{128, 256, 512},
		UpChannels:        []int64{256, 128, 96},
		Layers:            []int64{2, 2, 3},
		Dilations:         []int64{1, 2, 3, 4},
		Bias:              true,
		UseBN:             false,
		Activation:        base.ELU,
	}
}

// Factor returns the total downsampling factor of the network. Input height
// and width must be multiples of it.
func (c *Config) Factor() int64 {
	// stem stride 2, one 2x2 pool per encoder stage.
	return int64(2) << uint(len(c.DownChannels))
}

// Validate checks channel bookkeeping and input size.
func (c *Config) Validate() error {
	if c.InChannels <= 0 {
		return errors.Errorf("invalid input channels: %d", c.InChannels)
	}
	if c.NumClasses <= 0 {
		return errors.Errorf("invalid number of classes: %d", c.NumClasses)
	}
	if c.InitBlockChannels <= 0 {
		return errors.Errorf("invalid init block channels: %d", c.InitBlockChannels)
	}
	depth := len(c.DownChannels)
	if depth == 0 {
		return errors.New("at least one encoder stage is required")
	}
	if len(c.Layers) != depth {
		return errors.Errorf("expected %d fire block counts, got %d", depth, len(c.Layers))
	}
	if len(c.UpChannels) != depth {
		return errors.Errorf("expected %d decoder stages, got %d", depth, len(c.UpChannels))
	}
	for i, n := range c.Layers {
		if n <= 0 {
			return errors.Errorf("encoder stage %d: invalid fire block count %d", i+1, n)
		}
	}
	for i, ch := range c.DownChannels {
		if ch <= 0 || ch%8 != 0 {
			return errors.Errorf("encoder stage %d: channels must be a positive multiple of 8, got %d", i+1, ch)
		}
	}
	if c.DownChannels[depth-1]%2 != 0 {
		return errors.Errorf("deepest encoder channels must be even, got %d", c.DownChannels[depth-1])
	}
	for i, ch := range c.UpChannels {
		if ch <= 0 {
			return errors.Errorf("decoder stage %d: invalid channels %d", i+1, ch)
		}
	}
	// decoder output at each level is merged with a skip of the encoder input
	// at that level.
	skipChannels := c.skipChannels()
	for i := 1; i < depth; i++ {
		if c.UpChannels[i-1] != skipChannels[depth-i] {
			return errors.Errorf("decoder stage %d outputs %d channels, skip at that level has %d", i, c.UpChannels[i-1], skipChannels[depth-i])
		}
	}
	if c.UpChannels[depth-1] != skipChannels[0] {
		return errors.Errorf("last decoder stage outputs %d channels, stem has %d", c.UpChannels[depth-1], skipChannels[0])
	}
	f := c.Factor()
	if c.InSize[0] <= 0 || c.InSize[1] <= 0 || c.InSize[0]%f != 0 || c.InSize[1]%f != 0 {
		return errors.Errorf("input size %dx%d must be positive multiples of %d", c.InSize[0], c.InSize[1], f)
	}

	return nil
}

// skipChannels returns the channel count of each encoder stage input.
func (c *Config) skipChannels() []int64 {
	channels := make([]int64, len(c.DownChannels))
	cIn := c.InitBlockChannels
	for i, cOut := range c.DownChannels {
		channels[i] = cIn
		cIn = cOut
	}
	return channels
}

func (c *Config) convOpts() []base.ConvOption {
	return []base.ConvOption{
		base.WithBias(c.Bias),
		base.WithBN(c.UseBN),
		base.WithActivation(c.Activation),
	}
}

// SQNet is a SqueezeNet based encoder-decoder for semantic segmentation.
// Ref: 'Speeding up Semantic Segmentation for Autonomous Driving',
// https://openreview.net/pdf?id=S1uHiFyyg
type SQNet struct {
	stem *base.ConvBlock
	hg   *base.Hourglass
	head *UpStage
	cfg  Config
}

// New creates SQNet. Variables are stored under `stem`, `hg` and `head`.
func New(p *nn.Path, cfg *Config) (*SQNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "sqnet: invalid config")
	}
	opts := cfg.convOpts()

	stem := base.Conv3x3Block(p.Sub("stem"), cfg.InChannels, cfg.InitBlockChannels, append(opts, base.WithStride(2))...)
	cIn := cfg.InitBlockChannels

	hp := p.Sub("hg")
	downPath := hp.Sub("down_seq")
	skipPath := hp.Sub("skip_seq")
	depth := len(cfg.DownChannels)
	down := make([]ts.ModuleT, depth)
	skip := make([]ts.ModuleT, depth)
	for i, cOut := range cfg.DownChannels {
		skip[i] = base.Conv3x3Block(skipPath.Sub(fmt.Sprintf("skip%d", i+1)), cIn, cIn, opts...)

		sp := downPath.Sub(fmt.Sprintf("down%d", i+1))
		stage := nn.SeqT()
		stage.Add(base.NewMaxPool2x2())
		for j := int64(0); j < cfg.Layers[i]; j++ {
			fire, err := NewFireBlock(sp.Sub(fmt.Sprintf("unit%d", j+2)), cIn, cOut, opts...)
			if err != nil {
				return nil, errors.Wrapf(err, "sqnet: encoder stage %d", i+1)
			}
			stage.Add(fire)
			cIn = cOut
		}
		down[i] = stage
		klog.V(2).Infof("sqnet: down%d -> %d channels, %d fire blocks", i+1, cOut, cfg.Layers[i])
	}

	cIn = cIn / 2

	upPath := hp.Sub("up_seq")
	up := make([]ts.ModuleT, depth)
	for i, cOut := range cfg.UpChannels {
		parallel := i == 0
		stage, err := NewUpStage(upPath.Sub(fmt.Sprintf("up%d", i+1)), 2*cIn, cOut, cfg.Dilations, parallel, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "sqnet: decoder stage %d", i+1)
		}
		// up stages are built deepest first, the hourglass indexes them
		// shallowest first.
		up[depth-1-i] = stage
		klog.V(2).Infof("sqnet: up%d %d -> %d channels (parallel=%v)", i+1, 2*cIn, cOut, parallel)
		cIn = cOut
	}

	hg, err := base.NewHourglass(down, up, skip, base.MergeCat)
	if err != nil {
		return nil, errors.Wrap(err, "sqnet")
	}

	head, err := NewUpStage(p.Sub("head"), 2*cIn, cfg.NumClasses, nil, false, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "sqnet: head")
	}

	return &SQNet{
		stem: stem,
		hg:   hg,
		head: head,
		cfg:  *cfg,
	}, nil
}

// Default creates SQNet with DefaultConfig and the given number of classes.
func Default(p *nn.Path, numClasses int64) (*SQNet, error) {
	cfg := DefaultConfig()
	cfg.NumClasses = numClasses
	return New(p, cfg)
}

// Config returns a copy of the configuration the model was built with.
func (n *SQNet) Config() Config {
	return n.cfg
}

// ForwardT implements ts.ModuleT for SQNet.
// [bz C H W] => [bz NumClasses H W]
func (n *SQNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	stem := n.stem.ForwardT(x, train) // [bz 96 H/2 W/2]
	hg := n.hg.ForwardT(stem, train)  // [bz 192 H/2 W/2]
	stem.MustDrop()
	out := n.head.ForwardT(hg, train) // [bz NumClasses H W]
	hg.MustDrop()

	return out
}
