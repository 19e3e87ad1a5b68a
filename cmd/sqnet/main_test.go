package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
)

func setFlags(t *testing.T) {
	t.Helper()
	Device = gotch.CPU
	NumClasses = 19
	Height = 32
	Width = 64
	BatchSize = 1
	UseBN = false
	Alpha = 128
	WeightsPath = ""
	LabelPath = ""
	CSVPath = ""
	PlotPath = ""
}

func TestRunCheck(t *testing.T) {
	setFlags(t)
	assert.NoError(t, runCheck())
}

func TestRunCheckInvalidSize(t *testing.T) {
	setFlags(t)
	Height = 30
	assert.Error(t, runCheck())
}

func TestRunSummary(t *testing.T) {
	setFlags(t)
	dir := t.TempDir()
	CSVPath = filepath.Join(dir, "params.csv")
	PlotPath = filepath.Join(dir, "params.png")

	require.NoError(t, runSummary())
	_, err := os.Stat(CSVPath)
	assert.NoError(t, err)
	_, err = os.Stat(PlotPath)
	assert.NoError(t, err)
}

func TestRunPredict(t *testing.T) {
	setFlags(t)
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 6), uint8(y * 12), 90, 255})
		}
	}
	InputPath = filepath.Join(dir, "input.png")
	f, err := os.Create(InputPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	label := image.NewGray(image.Rect(0, 0, 40, 20))
	LabelPath = filepath.Join(dir, "label.png")
	f, err = os.Create(LabelPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, label))
	require.NoError(t, f.Close())

	OutputPath = filepath.Join(dir, "out", "mask.png")
	require.NoError(t, runPredict())

	for _, name := range []string{"mask.png", "mask-overlay.png"} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}
}

func TestRunPredictMissingInput(t *testing.T) {
	setFlags(t)
	InputPath = ""
	assert.Error(t, runPredict())
}
