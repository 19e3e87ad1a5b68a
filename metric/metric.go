// Package metric scores predicted label maps against reference label maps.
package metric

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"
	"gonum.org/v1/gonum/mat"
)

// Argmax returns the class id of every pixel of a [B C H W] score tensor,
// flattened in [B H W] order.
func Argmax(logits *ts.Tensor) []int64 {
	labels := logits.MustArgmax([]int64{1}, false, false)
	vals := labels.Int64Values()
	labels.MustDrop()

	return vals
}

// ConfusionMatrix counts (target, prediction) pairs. Rows are target
// classes, columns predicted classes. Pixels whose target is outside
// [0, numClasses) (e.g. Cityscapes ignore label 255) are skipped; a
// prediction outside that range is an error.
func ConfusionMatrix(pred, target []int64, numClasses int) (*mat.Dense, error) {
	if numClasses <= 0 {
		return nil, errors.Errorf("invalid number of classes: %d", numClasses)
	}
	if len(pred) != len(target) {
		return nil, errors.Errorf("prediction has %d pixels, target has %d", len(pred), len(target))
	}

	n := int64(numClasses)
	counts := make([]float64, numClasses*numClasses)
	for i, t := range target {
		if t < 0 || t >= n {
			continue
		}
		p := pred[i]
		if p < 0 || p >= n {
			return nil, errors.Errorf("predicted class %d out of range [0, %d)", p, n)
		}
		counts[t*n+p]++
	}

	return mat.NewDense(numClasses, numClasses, counts), nil
}

// PixelAccuracy is the share of counted pixels classified correctly.
func PixelAccuracy(cm *mat.Dense) float64 {
	total := mat.Sum(cm)
	if total == 0 {
		return 0
	}
	return mat.Trace(cm) / total
}

// IoU returns per class intersection over union. Classes absent from both
// target and prediction get NaN.
func IoU(cm *mat.Dense) []float64 {
	n, _ := cm.Dims()
	ious := make([]float64, n)
	for c := 0; c < n; c++ {
		tp := cm.At(c, c)
		union := mat.Sum(cm.RowView(c)) + mat.Sum(cm.ColView(c)) - tp
		if union == 0 {
			ious[c] = math.NaN()
			continue
		}
		ious[c] = tp / union
	}
	return ious
}

// MeanIoU averages IoU over classes that are present.
func MeanIoU(cm *mat.Dense) float64 {
	var sum float64
	var cnt int
	for _, v := range IoU(cm) {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		cnt++
	}
	if cnt == 0 {
		return 0
	}
	return sum / float64(cnt)
}

// DiceCoeff returns per class Dice coefficient (F1):
// 2*TP / (2*TP + FP + FN). Classes absent from both target and prediction
// get NaN.
func DiceCoeff(cm *mat.Dense) []float64 {
	n, _ := cm.Dims()
	dice := make([]float64, n)
	for c := 0; c < n; c++ {
		tp := cm.At(c, c)
		fn := mat.Sum(cm.RowView(c)) - tp
		fp := mat.Sum(cm.ColView(c)) - tp
		denom := 2*tp + fp + fn
		if denom == 0 {
			dice[c] = math.NaN()
			continue
		}
		dice[c] = 2 * tp / denom
	}
	return dice
}
