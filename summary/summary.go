// Package summary reports the trainable parameters held by a nn.VarStore.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Param describes one trainable variable.
type Param struct {
	Name  string
	Shape []int64
	Count int64
}

// Collect returns trainable variables sorted by name.
func Collect(vs *nn.VarStore) []Param {
	vars := vs.Variables()
	params := make([]Param, 0, len(vars))
	for name, v := range vars {
		if !v.MustRequiresGrad() {
			continue
		}
		shape := v.MustSize()
		count := int64(1)
		for _, d := range shape {
			count *= d
		}
		params = append(params, Param{Name: name, Shape: shape, Count: count})
	}
	sort.Slice(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})

	return params
}

// Total returns the number of weights in params.
func Total(params []Param) int64 {
	var n int64
	for _, p := range params {
		n += p.Count
	}
	return n
}

// Group is the parameter total of a module.
type Group struct {
	Module string
	Count  int64
}

// ByModule sums parameters per module, where a module is named by the first
// depth segments of the owning module path (the variable name minus its last
// segment). E.g. with depth 3 `hg.down_seq.down1.unit2.conv.conv.weight`
// belongs to `hg.down_seq.down1` and `stem.conv.weight` to `stem.conv`.
func ByModule(params []Param, depth int) []Group {
	if depth < 1 {
		depth = 1
	}
	var groups []Group
	index := make(map[string]int)
	for _, p := range params {
		parts := strings.Split(p.Name, ".")
		if len(parts) > 1 {
			parts = parts[:len(parts)-1]
		}
		if len(parts) > depth {
			parts = parts[:depth]
		}
		name := strings.Join(parts, ".")
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Module: name})
		}
		groups[i].Count += p.Count
	}

	return groups
}

// Format returns a count with thousands separators.
func Format(n int64) string {
	return humanize.Comma(n)
}

type row struct {
	Name   string `dataframe:"name"`
	Shape  string `dataframe:"shape"`
	Params int    `dataframe:"params"`
}

// Table returns a dataframe with one row per variable.
func Table(params []Param) dataframe.DataFrame {
	rows := make([]row, len(params))
	for i, p := range params {
		rows[i] = row{
			Name:   p.Name,
			Shape:  fmt.Sprint(p.Shape),
			Params: int(p.Count),
		}
	}
	return dataframe.LoadStructs(rows)
}

// WriteCSV writes the variable table as CSV.
func WriteCSV(w io.Writer, params []Param) error {
	df := Table(params)
	if df.Err != nil {
		return errors.Wrap(df.Err, "summary: build table")
	}
	return errors.Wrap(df.WriteCSV(w), "summary: write csv")
}

// Plot saves a bar chart of per-module parameter counts. The image format
// follows the file extension (png, svg, pdf...).
func Plot(groups []Group, file string) error {
	p, err := plot.New()
	if err != nil {
		return errors.Wrap(err, "summary: new plot")
	}
	p.Title.Text = "Parameters per module"
	p.Y.Label.Text = "parameters"

	values := make(plotter.Values, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		values[i] = float64(g.Count)
		names[i] = g.Module
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "summary: bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(groups)) * vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	if err := p.Save(width, 4*vg.Inch, file); err != nil {
		return errors.Wrapf(err, "summary: save %q", file)
	}

	return nil
}
