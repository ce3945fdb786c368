/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart"
)

// ResponsesChart static percentiles chart, rps is drawn on secondary axis
func ResponsesChart(chartTitle string, path string) (*chart.Chart, error) {
	percs, err := parsePercsData(path)
	if err != nil {
		return nil, err
	}
	var series []chart.Series
	var colorIndex int
	var latencies []float64
	for _, key := range sortedKeys(percs) {
		value := percs[key]
		if key != "rps" {
			latencies = append(latencies, value.YValues...)
		}
		line := chart.ContinuousSeries{
			Name: key,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(colorIndex).WithAlpha(255),
				DotWidth:    3.0,
				StrokeWidth: 3,
			},
			XValues: value.XValues,
			YValues: value.YValues,
		}
		if key == "rps" {
			line.YAxis = chart.YAxisSecondary
		}
		series = append(series, line)
		colorIndex++
	}

	chartData := &chart.Chart{
		Title: chartTitle,
		Background: chart.Style{
			Padding: chart.Box{
				Top:  20,
				Left: 150,
			},
		},
		XAxis: chart.XAxis{
			Name: "Test time (Seconds)",
		},
		YAxis: chart.YAxis{
			Name:  "Response time (Ms)",
			Range: zeroBasedRange(latencies),
		},
		YAxisSecondary: chart.YAxis{
			Name:  "RPS",
			Range: zeroBasedRange(percs["rps"].YValues),
		},
		Series: series,
		Width:  800,
		Height: 600,
	}
	chartData.Elements = []chart.Renderable{
		chart.LegendLeft(chartData),
	}
	return chartData, nil
}

// LatencySweepChart static chart of latencies (ms) over tested rates
func LatencySweepChart(chartTitle string, rates []float64, latencies map[string][]float64) (*chart.Chart, error) {
	if len(rates) < 2 {
		return nil, errors.New("at least two rates are required to draw a line")
	}
	var series []chart.Series
	var colorIndex int
	var allYValues []float64
	for _, key := range []string{"mean", "p50", "p90", "p95", "p99"} {
		values, ok := latencies[key]
		if !ok {
			continue
		}
		allYValues = append(allYValues, values...)
		series = append(series, chart.ContinuousSeries{
			Name: key,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(colorIndex).WithAlpha(255),
				DotWidth:    3.0,
				StrokeWidth: 3,
			},
			XValues: rates,
			YValues: values,
		})
		colorIndex++
	}
	if len(series) == 0 {
		return nil, errors.New("no latency metrics to plot")
	}
	chartData := &chart.Chart{
		Title: chartTitle,
		XAxis: chart.XAxis{
			Name: "Target rate (rps)",
		},
		YAxis: chart.YAxis{
			Name:  "Latency (Ms)",
			Range: zeroBasedRange(allYValues),
		},
		Series: series,
	}
	chartData.Elements = []chart.Renderable{
		chart.LegendLeft(chartData),
	}
	return chartData, nil
}

// zeroBasedRange keeps axis delta non zero for flat series
func zeroBasedRange(values []float64) *chart.ContinuousRange {
	max := MaxRPS(values)
	if max <= 0 {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: max * 1.1}
}

func RenderChart(chartData *chart.Chart, fileName string) error {
	file, err := CreateFileOrReplace(fileName)
	if err != nil {
		return err
	}
	defer file.Close()
	return errors.Wrapf(chartData.Render(chart.PNG, file), "render %s", fileName)
}
