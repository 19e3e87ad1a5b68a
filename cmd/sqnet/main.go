package main

import (
	"flag"
	"path/filepath"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"k8s.io/klog/v2"

	"github.com/sugarme/sqnet/sqnet"
)

// flag variables
var (
	task        string
	Cuda        bool
	Device      gotch.Device
	WeightsPath string
	InputPath   string
	LabelPath   string
	OutputPath  string
	CSVPath     string
	PlotPath    string
)

// model options
var (
	NumClasses int64
	Height     int64
	Width      int64
	BatchSize  int64
	UseBN      bool
	Alpha      int // mask overlay opacity
)

func init() {
	klog.InitFlags(nil)

	flag.StringVar(&task, "task", "summary", "specify task to run: summary, check or predict")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.StringVar(&WeightsPath, "weights", "", "specify full path to model weight '.ot' file.")
	flag.StringVar(&InputPath, "input", "", "specify input image (png, jpeg or tiff).")
	flag.StringVar(&LabelPath, "label", "", "specify optional ground truth label image to score the prediction.")
	flag.StringVar(&OutputPath, "output", "./output/mask.png", "specify output mask image.")
	flag.StringVar(&CSVPath, "csv", "", "specify file to write the per-variable parameter table.")
	flag.StringVar(&PlotPath, "plot", "", "specify file to save the per-module parameter chart.")
	flag.Int64Var(&NumClasses, "classes", 19, "specify number of classes")
	flag.Int64Var(&Height, "height", 1024, "specify input image height (multiple of 16)")
	flag.Int64Var(&Width, "width", 2048, "specify input image width (multiple of 16)")
	flag.Int64Var(&BatchSize, "batch", 4, "specify batch size")
	flag.BoolVar(&UseBN, "bn", false, "specify whether using batch-norm after convolutions")
	flag.IntVar(&Alpha, "alpha", 128, "specify mask opacity (0-255) of the overlay image")
}

func main() {
	flag.Parse()
	defer klog.Flush()

	Device = gotch.CPU
	if Cuda {
		Device = gotch.CudaIfAvailable()
	}

	var err error
	switch task {
	case "summary":
		err = runSummary()
	case "check":
		err = runCheck()
	case "predict":
		err = runPredict()
	default:
		klog.Fatalf("Unknown 'task' name %q. Please specify valid 'task' flag to run.", task)
	}
	if err != nil {
		klog.Fatalf("%s: %v", task, err)
	}
}

// modelConfig builds the model config from flags.
func modelConfig() *sqnet.Config {
	cfg := sqnet.DefaultConfig()
	cfg.NumClasses = NumClasses
	cfg.InSize = [2]int64{Height, Width}
	cfg.UseBN = UseBN
	return cfg
}

// newModel creates the var store and the model.
func newModel() (*nn.VarStore, *sqnet.SQNet, error) {
	vs := nn.NewVarStore(Device)
	net, err := sqnet.New(vs.Root(), modelConfig())
	if err != nil {
		return nil, nil, err
	}
	return vs, net, nil
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		klog.Fatal(err)
	}
	return fullpath
}
