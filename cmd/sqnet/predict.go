package main

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"
	"k8s.io/klog/v2"

	"github.com/sugarme/sqnet/imageutil"
	"github.com/sugarme/sqnet/metric"
)

// runPredict segments a single image and saves the colorized mask and an
// overlay next to it.
func runPredict() error {
	if InputPath == "" {
		return errors.New("missing -input image")
	}
	if Alpha < 0 || Alpha > 255 {
		return errors.Errorf("invalid -alpha %d, expected 0-255", Alpha)
	}

	vs, net, err := newModel()
	if err != nil {
		return err
	}
	if WeightsPath != "" {
		if err := vs.Load(absPath(WeightsPath)); err != nil {
			return errors.Wrapf(err, "load weights %q", WeightsPath)
		}
		klog.Infof("Weights loaded from %s", WeightsPath)
	} else {
		klog.Warning("No -weights given, predicting with randomly initialized model")
	}

	img, err := imageutil.Read(absPath(InputPath))
	if err != nil {
		return err
	}
	h, w := int(Height), int(Width)
	input, err := imageutil.ToTensor(img, h, w)
	if err != nil {
		return err
	}
	x := input.MustTo(Device, true)
	defer x.MustDrop()

	var labels []int64
	ts.NoGrad(func() {
		logits := net.ForwardT(x, false)
		labels = metric.Argmax(logits)
		logits.MustDrop()
	})

	mask, err := imageutil.Colorize(labels, h, w, imageutil.Palette(int(NumClasses)))
	if err != nil {
		return err
	}
	out := absPath(OutputPath)
	if err := imageutil.SavePNG(out, mask); err != nil {
		return err
	}
	ext := filepath.Ext(out)
	overlayPath := strings.TrimSuffix(out, ext) + "-overlay" + ext
	if err := imageutil.SavePNG(overlayPath, imageutil.Overlay(img, mask, uint8(Alpha))); err != nil {
		return err
	}
	klog.Infof("Mask saved to %s, overlay to %s", out, overlayPath)

	if LabelPath != "" {
		target, err := imageutil.ReadLabels(absPath(LabelPath), h, w)
		if err != nil {
			return err
		}
		cm, err := metric.ConfusionMatrix(labels, target, int(NumClasses))
		if err != nil {
			return err
		}
		klog.Infof("Pixel accuracy: %0.4f - mean IoU: %0.4f", metric.PixelAccuracy(cm), metric.MeanIoU(cm))
	}

	return nil
}
