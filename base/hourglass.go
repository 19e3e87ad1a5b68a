package base

import (
	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/sqnet/encoder"
)

// Hourglass is an encoder-decoder with skip connections.
//
// The encoder runs `down` stages and keeps every intermediate tensor. The
// decoder then walks back up: before each up stage (except the first), the
// encoder tensor of the same resolution goes through its skip module and is
// merged into the running tensor.
//
// Up stages are indexed like down stages: up[i] mirrors down[i], so up[depth-1]
// consumes the deepest encoder output and up[0] is applied last.
type Hourglass struct {
	down  *encoder.StageEncoder
	up    []ts.ModuleT
	skip  []ts.ModuleT
	merge MergeType
}

// NewHourglass creates Hourglass. down, up and skip must have the same length.
func NewHourglass(down, up, skip []ts.ModuleT, m MergeType) (*Hourglass, error) {
	depth := len(down)
	if depth == 0 {
		return nil, errors.New("hourglass: empty down sequence")
	}
	if len(up) != depth {
		return nil, errors.Errorf("hourglass: expected %d up stages, got %d", depth, len(up))
	}
	if len(skip) != depth {
		return nil, errors.Errorf("hourglass: expected %d skip modules, got %d", depth, len(skip))
	}
	if m != MergeCat && m != MergeSum {
		return nil, errors.Errorf("hourglass: unsupported merge type %v", m)
	}

	return &Hourglass{
		down:  encoder.NewStageEncoder(down...),
		up:    up,
		skip:  skip,
		merge: m,
	}, nil
}

// Depth returns the number of down (and up) stages.
func (h *Hourglass) Depth() int {
	return h.down.Depth()
}

// ForwardT implements ts.ModuleT for Hourglass.
func (h *Hourglass) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	features := h.down.ForwardAll(x, train)
	depth := len(features) - 1

	out := features[depth].MustShallowClone()
	for i := 0; i <= depth; i++ {
		if i != 0 {
			y := h.skip[depth-i].ForwardT(features[depth-i], train)
			merged := merge([]*ts.Tensor{out, y}, h.merge)
			y.MustDrop()
			out.MustDrop()
			out = merged
		}
		if i != depth {
			next := h.up[depth-1-i].ForwardT(out, train)
			out.MustDrop()
			out = next
		}
	}

	for _, f := range features {
		f.MustDrop()
	}

	return out
}
