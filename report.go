/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	runId               string
	runName             string
	metricsLogFilename  string
	percsReportFilename string
	percsPNGFilename    string
	percLogFilename     string
	files               []*os.File
	metricsLogFile      *csv.Writer
	percLogFile         *csv.Writer
	reportOptions       *ReportOptions
	L                   *Logger
}

func NewReport(cfg *RunnerConfig) (*Report, error) {
	tn := time.Now().Unix()
	runId := uuid.New().String()
	name := SafeName(cfg.Name)
	dir := cfg.ReportOptions.Dir
	r := &Report{
		runId:               runId,
		runName:             cfg.Name,
		metricsLogFilename:  filepath.Join(dir, fmt.Sprintf(MetricsLogFile, name, runId, tn)),
		percsReportFilename: filepath.Join(dir, fmt.Sprintf(ReportGraphFile, name, runId, tn)),
		percsPNGFilename:    filepath.Join(dir, fmt.Sprintf(ReportPNGFile, name, runId, tn)),
		percLogFilename:     filepath.Join(dir, fmt.Sprintf(PercsLogFile, name, runId, tn)),
		reportOptions:       cfg.ReportOptions,
		L:                   newRunnerLogger(cfg).With("report", cfg.Name),
	}
	metricsFile, err := CreateFileOrReplace(r.metricsLogFilename)
	if err != nil {
		return nil, err
	}
	percFile, err := CreateFileOrReplace(r.percLogFilename)
	if err != nil {
		metricsFile.Close()
		return nil, err
	}
	r.files = []*os.File{metricsFile, percFile}
	r.metricsLogFile = csv.NewWriter(metricsFile)
	r.percLogFile = csv.NewWriter(percFile)
	_ = r.metricsLogFile.Write(ResultsCsvHeader)
	_ = r.percLogFile.Write(PercsCsvHeader)
	return r, nil
}

func (r *Report) plot() {
	if r.reportOptions.HTML {
		r.L.Infof("reporting html graphs: %s", r.percsReportFilename)
		chart, err := PercsChart(r.percLogFilename, r.runName)
		if err != nil {
			r.L.Error(err)
		} else if err := RenderEChart(chart, r.percsReportFilename); err != nil {
			r.L.Error(err)
		}
	}
	if r.reportOptions.PNG {
		r.L.Infof("reporting png graphs: %s", r.percsPNGFilename)
		chart, err := ResponsesChart(r.runName, r.percLogFilename)
		if err != nil {
			r.L.Error(err)
		} else if err := RenderChart(chart, r.percsPNGFilename); err != nil {
			r.L.Error(err)
		}
	}
}

func (r *Report) flushLogs() {
	r.percLogFile.Flush()
	r.metricsLogFile.Flush()
}

func (r *Report) close() {
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			r.L.Error(err)
		}
	}
}

func (r *Report) writeResultEntry(res AttackResult, errorMsg string) {
	_ = r.metricsLogFile.Write([]string{
		res.DoResult.RequestLabel,
		strconv.FormatInt(res.Begin.UnixNano(), 10),
		strconv.FormatInt(res.End.UnixNano(), 10),
		res.Elapsed.String(),
		strconv.Itoa(res.DoResult.StatusCode),
		errorMsg,
	})
}

func (r *Report) writePercentilesEntry(res AttackResult, tickMetrics *Metrics) {
	_ = r.percLogFile.Write([]string{
		res.DoResult.RequestLabel,
		strconv.Itoa(res.AttackToken.Tick),
		strconv.Itoa(int(tickMetrics.Rate)),
		strconv.Itoa(int(tickMetrics.Latencies.P50.Milliseconds())),
		strconv.Itoa(int(tickMetrics.Latencies.P95.Milliseconds())),
		strconv.Itoa(int(tickMetrics.Latencies.P99.Milliseconds())),
	})
}
