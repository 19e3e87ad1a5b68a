package encoder

import (
	"github.com/sugarme/gotch/ts"
)

// Encoder is encoder interface for a image segmentation model.
//
// ForwardAll returns the encoder input followed by the output of every stage,
// shallowest first. The caller owns all returned tensors.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
}
