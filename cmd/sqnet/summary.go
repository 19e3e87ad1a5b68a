package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/sugarme/sqnet/summary"
)

func runSummary() error {
	vs, _, err := newModel()
	if err != nil {
		return err
	}

	params := summary.Collect(vs)
	groups := summary.ByModule(params, 3)
	for _, g := range groups {
		fmt.Printf("%-24s %14s\n", g.Module, summary.Format(g.Count))
	}
	klog.Infof("SQNet (%d classes): %s trainable parameters", NumClasses, summary.Format(summary.Total(params)))

	if CSVPath != "" {
		f, err := os.Create(absPath(CSVPath))
		if err != nil {
			return err
		}
		if err := summary.WriteCSV(f, params); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrap(err, "close csv")
		}
		klog.Infof("Parameter table written to %s", CSVPath)
	}

	if PlotPath != "" {
		if err := summary.Plot(groups, absPath(PlotPath)); err != nil {
			return err
		}
		klog.Infof("Parameter chart saved to %s", PlotPath)
	}

	return nil
}
