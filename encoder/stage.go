package encoder

import (
	"github.com/sugarme/gotch/ts"
)

// StageEncoder is a chain of downsampling stages. Each stage consumes the
// output of the previous one.
type StageEncoder struct {
	stages []ts.ModuleT
}

// NewStageEncoder creates a StageEncoder from stages ordered shallowest first.
func NewStageEncoder(stages ...ts.ModuleT) *StageEncoder {
	return &StageEncoder{stages}
}

// Depth returns the number of stages.
func (e *StageEncoder) Depth() int {
	return len(e.stages)
}

// ForwardAll implements Encoder interface for StageEncoder.
// 0- Shape: [bz C0 H W]
// 1- Shape: [bz C1 H/2 W/2] ...
func (e *StageEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	features := make([]*ts.Tensor, 0, len(e.stages)+1)
	features = append(features, x.MustShallowClone())
	for _, s := range e.stages {
		x = s.ForwardT(x, train)
		features = append(features, x)
	}

	return features
}
