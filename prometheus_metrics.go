/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPrometheusPort = 2112

var (
	promTickSuccessRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_success_ratio",
		Help: "Success requests ratio",
	}, []string{"runner"})
	promTickP50 = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_p50",
		Help: "Response time 50 Percentile",
	}, []string{"runner"})
	promTickP95 = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_p95",
		Help: "Response time 95 Percentile",
	}, []string{"runner"})
	promTickP99 = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_p99",
		Help: "Response time 99 Percentile",
	}, []string{"runner"})
	promTickMax = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_max",
		Help: "Response time MAX",
	}, []string{"runner"})
	promRPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpcflood_tick_rps",
		Help: "Requests per second rate",
	}, []string{"runner"})

	// exporter is shared by all runners in the process
	promServerOnce sync.Once
)

type PromReporter struct {
	runner string
}

// NewPromReporter starts metrics exporter on first call
func NewPromReporter(runner string, port int, l *Logger) *PromReporter {
	if port == 0 {
		port = DefaultPrometheusPort
	}
	promServerOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
				l.Errorf("prometheus exporter: %v", err)
			}
		}()
	})
	return &PromReporter{runner: runner}
}

func (m *PromReporter) reportTick(tm *TickMetrics) {
	promTickP50.WithLabelValues(m.runner).Set(float64(tm.Metrics.Latencies.P50.Milliseconds()))
	promTickP95.WithLabelValues(m.runner).Set(float64(tm.Metrics.Latencies.P95.Milliseconds()))
	promTickP99.WithLabelValues(m.runner).Set(float64(tm.Metrics.Latencies.P99.Milliseconds()))
	promTickMax.WithLabelValues(m.runner).Set(float64(tm.Metrics.Latencies.Max.Milliseconds()))
	promTickSuccessRatio.WithLabelValues(m.runner).Set(tm.Metrics.Success)
	promRPS.WithLabelValues(m.runner).Set(tm.Metrics.Rate)
}
