/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/charts"
	"github.com/pkg/errors"
)

type ChartLine struct {
	XValues []float64
	YValues []float64
}

var errMalformedCSV = errors.New("malformed csv")

func parsePercsData(path string) (map[string]*ChartLine, error) {
	reader, closer, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer()
	percs := map[string]*ChartLine{
		"rps": {},
		"p50": {},
		"p95": {},
		"p99": {},
	}
	// skip csv header
	_, _ = reader.Read()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(PercsCsvHeader) {
			return nil, errMalformedCSV
		}
		xValue, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, err
		}
		// columns after tick: rps, p50, p95, p99
		for i, key := range []string{"rps", "p50", "p95", "p99"} {
			yValue, err := strconv.ParseFloat(record[2+i], 64)
			if err != nil {
				return nil, err
			}
			percs[key].XValues = append(percs[key].XValues, xValue)
			percs[key].YValues = append(percs[key].YValues, yValue)
		}
	}
	for _, v := range percs {
		if len(v.XValues) == 0 || len(v.YValues) == 0 {
			return nil, errors.New("empty csv, nothing to plot")
		}
	}
	return percs, nil
}

func PercsChart(path string, title string) (*charts.Line, error) {
	d, err := parsePercsData(path)
	if err != nil {
		return nil, err
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.DataZoomOpts{},
		charts.TitleOpts{Title: title},
		charts.XAxisOpts{Name: "Time (sec)"},
		charts.YAxisOpts{Name: "Response (ms)"},
	)
	line.AddXAxis(d["rps"].XValues)
	for _, k := range sortedKeys(d) {
		line.AddYAxis(k, d[k].YValues, defaultMaxLabel(k)...)
	}
	return line, nil
}

// SweepChart draws one line per metric over tested rates
func SweepChart(title string, rates []float64, series map[string][]float64) (*charts.Line, error) {
	if len(rates) == 0 {
		return nil, errors.New("no rates, nothing to plot")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.TitleOpts{Title: title},
		charts.XAxisOpts{Name: "Target rate (rps)"},
		charts.YAxisOpts{Name: "Value"},
	)
	line.AddXAxis(rates)
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(series[k]) != len(rates) {
			return nil, errors.Errorf("series %s has %d values for %d rates", k, len(series[k]), len(rates))
		}
		line.AddYAxis(k, series[k], defaultMaxLabel(k)...)
	}
	return line, nil
}

func RenderEChart(data *charts.Line, name string) error {
	f, err := CreateFileOrReplace(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrapf(data.Render(f), "render %s", name)
}

// draws max label for every line
func defaultMaxLabel(metric string) []charts.SeriesOptser {
	return []charts.SeriesOptser{
		charts.MPNameTypeItem{Name: "max " + metric, Type: "max"},
		charts.MPStyleOpts{Label: charts.LabelTextOpts{Show: true}},
	}
}

func sortedKeys(m map[string]*ChartLine) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func openCSV(path string) (*csv.Reader, func(), error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewReader(csvFile), func() { _ = csvFile.Close() }, nil
}
