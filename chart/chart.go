// Package chart renders collected latency logs as a percentile chart.
// A latency log holds one sample per line, in nanoseconds; with the
// default 101 samples each line is one percentile.
package chart

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type series struct {
	title   string
	samples []float64
}

// Chart accumulates latency series and renders them in one pass.
type Chart struct {
	series []series
}

// New creates an empty Chart.
func New() *Chart {
	return &Chart{}
}

// AddData parses the latency log at path and registers it as a series
// titled title. Registration is append-only; adding the same title
// twice draws two series.
func (c *Chart) AddData(path, title string) error {
	samples, err := ReadSamples(path)
	if err != nil {
		return err
	}

	c.series = append(c.series, series{title: title, samples: samples})

	return nil
}

// Len reports the number of registered series.
func (c *Chart) Len() int {
	return len(c.series)
}

// Draw renders every registered series as a line to a PNG at outPath.
// yscale selects the vertical axis scale: "linear" or "log".
func (c *Chart) Draw(yscale, outPath string) error {
	if len(c.series) == 0 {
		return fmt.Errorf("no latency series registered")
	}

	p := plot.New()
	p.Title.Text = "Latency"
	p.X.Label.Text = "percentile"
	p.Y.Label.Text = "latency [ns]"
	p.Legend.Top = true
	p.Legend.Left = true

	if err := CheckScale(yscale); err != nil {
		return err
	}

	if yscale == "log" {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	for i, s := range c.series {
		xys := make(plotter.XYs, len(s.samples))

		// Spread the samples over 0..100 so series with different
		// sample counts still align by percentile.
		denom := float64(len(s.samples) - 1)
		if denom == 0 {
			denom = 1
		}

		for j, v := range s.samples {
			xys[j].X = 100 * float64(j) / denom
			xys[j].Y = v
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("plot series %s: %w", s.title, err)
		}

		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.title, line)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save chart %s: %w", outPath, err)
	}

	return nil
}

// CheckScale validates a y-axis scale name.
func CheckScale(yscale string) error {
	switch yscale {
	case "linear", "log":
		return nil
	}

	return fmt.Errorf("unsupported y-axis scale %q (want linear or log)", yscale)
}

// ReadSamples parses a latency log: one float per line, blank lines
// skipped. An empty log is an error.
func ReadSamples(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open latency log: %w", err)
	}
	defer f.Close()

	var samples []float64

	sc := bufio.NewScanner(f)
	line := 0

	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse latency sample: %w", path, line, err)
		}

		samples = append(samples, v)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: no latency samples", path)
	}

	return samples, nil
}
