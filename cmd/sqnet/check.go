package main

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"
	"k8s.io/klog/v2"

	"github.com/sugarme/sqnet/summary"
)

// cityscapesWeightCount is the number of trainable parameters of the
// 19-class model without batch-norm.
const cityscapesWeightCount int64 = 16262771

// runCheck builds the model, verifies its weight count and feeds it a random
// batch.
func runCheck() error {
	vs, net, err := newModel()
	if err != nil {
		return err
	}

	count := summary.Total(summary.Collect(vs))
	klog.Infof("m=sqnet, %d", count)
	if NumClasses == 19 && !UseBN && count != cityscapesWeightCount {
		return errors.Errorf("weight count %d, expected %d", count, cityscapesWeightCount)
	}

	x := ts.MustRandn([]int64{BatchSize, 3, Height, Width}, gotch.Float, Device)
	defer x.MustDrop()

	var got []int64
	ts.NoGrad(func() {
		y := net.ForwardT(x, false)
		got = y.MustSize()
		y.MustDrop()
	})

	want := []int64{BatchSize, NumClasses, Height, Width}
	if !reflect.DeepEqual(got, want) {
		return errors.Errorf("output shape %v, expected %v", got, want)
	}
	klog.Infof("Output shape %v: OK", got)

	return nil
}
