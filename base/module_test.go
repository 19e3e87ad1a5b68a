package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/sqnet/base"
	"github.com/sugarme/sqnet/summary"
)

func TestConvBlockShapes(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()

	x := ts.MustRandn([]int64{2, 8, 16, 16}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	tests := []struct {
		name  string
		block *base.ConvBlock
		want  []int64
	}{
		{"conv1x1", base.Conv1x1Block(root.Sub("c1"), 8, 4), []int64{2, 4, 16, 16}},
		{"conv3x3", base.Conv3x3Block(root.Sub("c3"), 8, 8), []int64{2, 8, 16, 16}},
		{"conv3x3-stride2", base.Conv3x3Block(root.Sub("c3s"), 8, 8, base.WithStride(2)), []int64{2, 8, 8, 8}},
		{"conv3x3-dilation3", base.Conv3x3Block(root.Sub("c3d"), 8, 8, base.WithDilation(3)), []int64{2, 8, 16, 16}},
		{"deconv3x3-stride2", base.Deconv3x3Block(root.Sub("d3"), 8, 5, base.WithStride(2)), []int64{2, 5, 32, 32}},
		{"conv3x3-bn", base.Conv3x3Block(root.Sub("bn"), 8, 6, base.WithBN(true), base.WithActivation(base.ELU)), []int64{2, 6, 16, 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.NoGrad(func() {
				y := tt.block.ForwardT(x, false)
				assert.Equal(t, tt.want, y.MustSize())
				y.MustDrop()
			})
		})
	}
}

func TestConvBlockParams(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	base.Conv3x3Block(vs.Root().Sub("a"), 4, 6)
	base.Conv1x1Block(vs.Root().Sub("b"), 4, 6, base.WithBias(false))
	base.Deconv3x3Block(vs.Root().Sub("c"), 6, 2, base.WithStride(2))

	params := summary.Collect(vs)
	// 4*6*9+6 + 4*6 + 6*2*9+2
	assert.Equal(t, int64(222+24+110), summary.Total(params))
}

func TestActivation(t *testing.T) {
	x := ts.MustOfSlice([]float32{-1, 0, 2})
	defer x.MustDrop()

	relu := base.ReLU(x)
	assert.Equal(t, []float64{0, 0, 2}, relu.Float64Values())
	relu.MustDrop()

	elu := base.ELU(x)
	vals := elu.Float64Values()
	elu.MustDrop()
	assert.InDelta(t, -0.6321, vals[0], 1e-4)
	assert.InDelta(t, 0, vals[1], 1e-6)
	assert.InDelta(t, 2, vals[2], 1e-6)
}

func TestMaxPool2x2(t *testing.T) {
	x := ts.MustOfSlice([]float32{
		1, 2, 5, 0,
		3, 4, 1, 1,
		0, 0, 7, 8,
		0, 9, 6, 5,
	}).MustView([]int64{1, 1, 4, 4}, true)
	defer x.MustDrop()

	y := base.NewMaxPool2x2().ForwardT(x, false)
	defer y.MustDrop()
	require.Equal(t, []int64{1, 1, 2, 2}, y.MustSize())
	assert.Equal(t, []float64{4, 5, 9, 8}, y.Float64Values())
}

func TestDeconvBlock(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()
	withBias := base.Deconv3x3Block(root.Sub("up"), 12, 5, base.WithStride(2))
	noBias := base.Deconv3x3Block(root.Sub("nobias"), 12, 3, base.WithStride(2), base.WithBias(false))
	same := base.Deconv3x3Block(root.Sub("same"), 12, 7)

	vars := vs.Variables()
	w, ok := vars["up.conv.weight"]
	require.True(t, ok)
	// [cIn cOut k k]
	assert.Equal(t, []int64{12, 5, 3, 3}, w.MustSize())
	b, ok := vars["up.conv.bias"]
	require.True(t, ok)
	assert.Equal(t, []int64{5}, b.MustSize())
	_, ok = vars["nobias.conv.bias"]
	assert.False(t, ok)

	x := ts.MustRandn([]int64{2, 12, 5, 7}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	tests := []struct {
		name  string
		block *base.ConvBlock
		want  []int64
	}{
		{"stride2", withBias, []int64{2, 5, 10, 14}},
		{"stride2-nobias", noBias, []int64{2, 3, 10, 14}},
		{"stride1", same, []int64{2, 7, 5, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.NoGrad(func() {
				y := tt.block.ForwardT(x, false)
				assert.Equal(t, tt.want, y.MustSize())
				y.MustDrop()
			})
		})
	}
}
