package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"thermoblink/types"
)

type row struct {
	Topic    string
	N        int
	Errors   int
	Mean     float64
	StdDev   float64
	Min, Max float64
}

// value extracts the physical quantity carried by a telemetry payload.
func value(p any) (v float64, failed, ok bool) {
	switch r := p.(type) {
	case types.TemperatureReading:
		if r.Err != "" {
			return 0, true, true
		}
		return float64(r.DeciC) / 10, false, true
	case types.HumidityReading:
		if r.Err != "" {
			return 0, true, true
		}
		return float64(r.RHx100) / 100, false, true
	}
	return 0, false, false
}

func summarize(series map[string][]float64, errs map[string]int) []row {
	topics := map[string]struct{}{}
	for t := range series {
		topics[t] = struct{}{}
	}
	for t := range errs {
		topics[t] = struct{}{}
	}

	rows := make([]row, 0, len(topics))
	for t := range topics {
		xs := series[t]
		r := row{Topic: t, N: len(xs), Errors: errs[t]}
		if len(xs) > 0 {
			r.Mean, r.StdDev = stat.MeanStdDev(xs, nil)
			if len(xs) == 1 {
				r.StdDev = 0
			}
			r.Min, r.Max = floats.Min(xs), floats.Max(xs)
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Topic < rows[j].Topic })
	return rows
}

func printSummary(w io.Writer, rows []row) {
	fmt.Fprintln(w, color.New(color.Bold).Sprintf("%-30s %6s %6s %9s %8s %9s %9s", "topic", "n", "errors", "mean", "stddev", "min", "max"))
	for _, r := range rows {
		errs := fmt.Sprintf("%6d", r.Errors)
		if r.Errors > 0 {
			errs = color.RedString(errs)
		}
		fmt.Fprintf(w, "%-30s %6d %s %9.2f %8.3f %9.2f %9.2f\n", r.Topic, r.N, errs, r.Mean, r.StdDev, r.Min, r.Max)
	}
}
