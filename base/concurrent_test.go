package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/sqnet/base"
)

// scale multiplies its input by a constant.
type scale float64

func (s scale) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return x.MustMulScalar(ts.FloatScalar(float64(s)), false)
}

// halve keeps every other row and column and doubles the channels.
type halve struct{}

func (halve) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	pooled := base.NewMaxPool2x2().ForwardT(x, train)
	out := ts.MustCat([]*ts.Tensor{pooled, pooled}, 1)
	pooled.MustDrop()
	return out
}

// double upsamples with nearest neighbour and halves the channels.
type double struct{}

func (double) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	size := x.MustSize()
	up := x.MustUpsampleNearest2d([]int64{size[2] * 2, size[3] * 2}, nil, nil, false)
	out := up.MustNarrow(1, 0, size[1]/2, false)
	up.MustDrop()
	return out
}

func TestConcurrentMerge(t *testing.T) {
	x := ts.MustOnes([]int64{1, 2, 3, 3}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	cat, err := base.NewConcurrent(base.MergeCat, scale(1), scale(2), scale(3))
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
	y := cat.ForwardT(x, false)
	assert.Equal(t, []int64{1, 6, 3, 3}, y.MustSize())
	y.MustDrop()

	sum, err := base.NewConcurrent(base.MergeSum, scale(1), scale(2), scale(3))
	require.NoError(t, err)
	y = sum.ForwardT(x, false)
	assert.Equal(t, []int64{1, 2, 3, 3}, y.MustSize())
	for _, v := range y.Float64Values() {
		assert.Equal(t, 6.0, v)
	}
	y.MustDrop()
}

func TestConcurrentErrors(t *testing.T) {
	_, err := base.NewConcurrent(base.MergeCat)
	assert.Error(t, err)

	_, err = base.NewConcurrent(base.MergeType(7), scale(1))
	assert.Error(t, err)
	assert.Equal(t, "MergeType(7)", base.MergeType(7).String())
}

func TestHourglass(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()

	// channels: 4 -> 8 -> 16
	down := []ts.ModuleT{halve{}, halve{}}
	// up[1] runs first: 16 -> 16, merged with 8 channel skip => 24
	// up[0] runs last: 24 -> 12, merged with 4 channel skip => 16
	// Swapping them would give 8+8 => 16, then 16+4 => 20 channels.
	up := []ts.ModuleT{double{}, upsampleOnly{}}
	skip := []ts.ModuleT{
		base.Conv3x3Block(root.Sub("skip1"), 4, 4),
		base.Conv3x3Block(root.Sub("skip2"), 8, 8),
	}

	hg, err := base.NewHourglass(down, up, skip, base.MergeCat)
	require.NoError(t, err)
	assert.Equal(t, 2, hg.Depth())

	x := ts.MustRandn([]int64{2, 4, 8, 8}, gotch.Float, gotch.CPU)
	defer x.MustDrop()
	ts.NoGrad(func() {
		y := hg.ForwardT(x, false)
		assert.Equal(t, []int64{2, 16, 8, 8}, y.MustSize())
		y.MustDrop()
	})
}

func TestHourglassSum(t *testing.T) {
	down := []ts.ModuleT{base.NewMaxPool2x2()}
	up := []ts.ModuleT{upsampleOnly{}}
	skip := []ts.ModuleT{base.NewIdentity()}

	hg, err := base.NewHourglass(down, up, skip, base.MergeSum)
	require.NoError(t, err)

	x := ts.MustOnes([]int64{1, 2, 4, 4}, gotch.Float, gotch.CPU)
	defer x.MustDrop()
	y := hg.ForwardT(x, false)
	defer y.MustDrop()
	assert.Equal(t, []int64{1, 2, 4, 4}, y.MustSize())
	for _, v := range y.Float64Values() {
		assert.Equal(t, 2.0, v)
	}
}

// upsampleOnly doubles height and width keeping the channels.
type upsampleOnly struct{}

func (upsampleOnly) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	size := x.MustSize()
	return x.MustUpsampleNearest2d([]int64{size[2] * 2, size[3] * 2}, nil, nil, false)
}

func TestHourglassErrors(t *testing.T) {
	one := []ts.ModuleT{base.NewIdentity()}
	two := []ts.ModuleT{base.NewIdentity(), base.NewIdentity()}

	_, err := base.NewHourglass(nil, nil, nil, base.MergeCat)
	assert.Error(t, err)
	_, err = base.NewHourglass(two, one, two, base.MergeCat)
	assert.Error(t, err)
	_, err = base.NewHourglass(two, two, one, base.MergeCat)
	assert.Error(t, err)
	_, err = base.NewHourglass(one, one, one, base.MergeType(9))
	assert.Error(t, err)
}
