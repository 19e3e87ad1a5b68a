// Package imageutil converts between image files and the tensors SQNet
// consumes and produces.
package imageutil

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"
	"golang.org/x/image/draw"
)

// Read reads image from file. Supported formats: png, jpeg and tiff.
func Read(filename string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch ext {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".tiff", ".tif":
		img, err = tiff.Decode(f)
	default:
		return nil, errors.Errorf("unsupported image format: %v", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %q", filename)
	}

	return img, nil
}

// ToTensor resizes img to h x w and returns a float tensor of shape
// [1 3 h w] with values in [0, 1].
func ToTensor(img image.Image, h, w int) (*ts.Tensor, error) {
	if h <= 0 || w <= 0 {
		return nil, errors.Errorf("invalid tensor size %dx%d", h, w)
	}
	resized := imaging.Resize(img, w, h, imaging.Linear)

	plane := h * w
	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := resized.NRGBAAt(x, y)
			i := y*w + x
			data[i] = float32(c.R) / 255
			data[plane+i] = float32(c.G) / 255
			data[2*plane+i] = float32(c.B) / 255
		}
	}

	return ts.MustOfSlice(data).MustView([]int64{1, 3, int64(h), int64(w)}, true), nil
}

// ReadLabels reads a single channel label map (pixel value = class id) and
// resizes it to h x w with nearest-neighbour interpolation so class ids are
// never blended. Returns labels in row-major order.
func ReadLabels(filename string, h, w int) ([]int64, error) {
	img, err := Read(filename)
	if err != nil {
		return nil, err
	}
	if h <= 0 || w <= 0 {
		return nil, errors.Errorf("invalid label size %dx%d", h, w)
	}

	resized := resize.Resize(uint(w), uint(h), img, resize.NearestNeighbor)
	b := resized.Bounds()
	labels := make([]int64, 0, h*w)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			labels = append(labels, labelAt(resized, x, y))
		}
	}

	return labels, nil
}

func labelAt(img image.Image, x, y int) int64 {
	switch m := img.(type) {
	case *image.Gray:
		return int64(m.GrayAt(x, y).Y)
	case *image.Paletted:
		return int64(m.ColorIndexAt(x, y))
	default:
		g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
		return int64(g.Y)
	}
}

// Colorize paints a label map of size h x w with palette colors. Labels
// outside the palette are painted black.
func Colorize(labels []int64, h, w int, palette []color.RGBA) (*image.RGBA, error) {
	if len(labels) != h*w {
		return nil, errors.Errorf("expected %d labels for %dx%d, got %d", h*w, h, w, len(labels))
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := labels[y*w+x]
			c := color.RGBA{0, 0, 0, 255}
			if l >= 0 && int(l) < len(palette) {
				c = palette[l]
			}
			img.SetRGBA(x, y, c)
		}
	}

	return img, nil
}

// Overlay draws mask over src with the given opacity (0-255). src is resized
// to the mask size.
func Overlay(src, mask image.Image, alpha uint8) *image.RGBA {
	rec := mask.Bounds()
	base := imaging.Resize(src, rec.Dx(), rec.Dy(), imaging.Linear)

	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, base, image.Point{}, draw.Src)
	opacity := image.NewUniform(color.Alpha{alpha})
	draw.DrawMask(dst, rec, mask, rec.Min, opacity, image.Point{}, draw.Over)

	return dst
}

// SavePNG encodes img to filename, creating parent directories as needed.
func SavePNG(filename string, img image.Image) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return errors.Wrapf(err, "encode %q", filename)
	}

	return out.Close()
}
