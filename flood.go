package rpcflood

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

var (
	// DefaultRates load levels of every test, rps
	DefaultRates = []int{10, 50, 100, 200, 500}
)

const (
	DefaultDurationSec     = 30
	DefaultAttackerTimeout = 5
	DefaultSampleBlocks    = 16
	DefaultCalls           = 1000
)

// metricValues extracts reported values, latencies are in seconds
var metricValues = map[string]func(m *Metrics) float64{
	"success":    func(m *Metrics) float64 { return m.Success },
	"throughput": func(m *Metrics) float64 { return m.Throughput },
	"rate":       func(m *Metrics) float64 { return m.Rate },
	"requests":   func(m *Metrics) float64 { return float64(m.Requests) },
	"mean":       func(m *Metrics) float64 { return m.Latencies.Mean.Seconds() },
	"p50":        func(m *Metrics) float64 { return m.Latencies.P50.Seconds() },
	"p90":        func(m *Metrics) float64 { return m.Latencies.P90.Seconds() },
	"p95":        func(m *Metrics) float64 { return m.Latencies.P95.Seconds() },
	"p99":        func(m *Metrics) float64 { return m.Latencies.P99.Seconds() },
	"max":        func(m *Metrics) float64 { return m.Latencies.Max.Seconds() },
}

// ValidateMetrics checks that every metric can be computed from run results
func ValidateMetrics(metrics []string) error {
	for _, name := range metrics {
		if _, ok := metricValues[name]; !ok {
			return errors.Wrap(ErrUnknownMetric, name)
		}
	}
	return nil
}

// MetricValue value of a named metric
func MetricValue(name string, m *Metrics) (float64, error) {
	f, ok := metricValues[name]
	if !ok {
		return 0, errors.Wrap(ErrUnknownMetric, name)
	}
	if m == nil {
		return 0, nil
	}
	return f(m), nil
}

// Options of a method load test
type Options struct {
	// Rates tested one after another, rps
	Rates []int
	// DurationSec of every rate
	DurationSec int
	// Transport name of registered attacker
	Transport string
	// AttackerTimeoutSec single request timeout
	AttackerTimeoutSec int
	// SampleBlocks latest blocks read to build call params
	SampleBlocks int
	// Calls distinct calls generated per test
	Calls int
	// OutputDir summaries and reports dir, nothing is written if empty
	OutputDir string
	CSV       bool
	HTML      bool
	PNG       bool
	// FailOnFirstError stops the test and fails it on first failed request
	FailOnFirstError bool
	// GoroutinesDump dumps goroutines when interrupted
	GoroutinesDump bool
	// Prometheus exports tick metrics on PrometheusPort
	Prometheus     bool
	PrometheusPort int
	DumpTransport  bool
	LogLevel       string
	LogEncoding    string
	// Out tables and plans output
	Out io.Writer
}

func DefaultOptions() Options {
	return Options{
		Rates:              DefaultRates,
		DurationSec:        DefaultDurationSec,
		Transport:          TransportFastHTTP,
		AttackerTimeoutSec: DefaultAttackerTimeout,
		SampleBlocks:       DefaultSampleBlocks,
		Calls:              DefaultCalls,
		LogLevel:           "info",
		LogEncoding:        "console",
		Out:                os.Stdout,
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if len(o.Rates) == 0 {
		o.Rates = d.Rates
	}
	if o.DurationSec <= 0 {
		o.DurationSec = d.DurationSec
	}
	if o.Transport == "" {
		o.Transport = d.Transport
	}
	if o.AttackerTimeoutSec <= 0 {
		o.AttackerTimeoutSec = d.AttackerTimeoutSec
	}
	if o.SampleBlocks <= 0 {
		o.SampleBlocks = d.SampleBlocks
	}
	if o.Calls <= 0 {
		o.Calls = d.Calls
	}
	if o.LogLevel == "" {
		o.LogLevel = d.LogLevel
	}
	if o.LogEncoding == "" {
		o.LogEncoding = d.LogEncoding
	}
	if o.Out == nil {
		o.Out = d.Out
	}
}

// RateResult metrics of one load level
type RateResult struct {
	Rate    int      `json:"rate"`
	Metrics *Metrics `json:"metrics"`
}

// NodeReport results of a method test against a node
type NodeReport struct {
	Node        string       `json:"node"`
	Method      string       `json:"method"`
	Transport   string       `json:"transport"`
	DurationSec int          `json:"duration_sec"`
	Results     []RateResult `json:"results"`
}

// Bench runs method load tests against nodes
type Bench struct {
	opts Options
	L    *Logger
}

func New(opts Options) *Bench {
	opts.defaults()
	return &Bench{
		opts: opts,
		L:    NewLogger(opts.LogLevel, opts.LogEncoding).With("bench", opts.Transport),
	}
}

func (b *Bench) validate(method string, nodes []string, metrics []string) error {
	if len(nodes) == 0 {
		return ErrNoNodes
	}
	if err := ValidateMethod(method); err != nil {
		return err
	}
	if err := ValidateMetrics(metrics); err != nil {
		return err
	}
	if AttackerFromString(b.opts.Transport) == nil {
		return errors.Wrap(ErrUnknownTransport, b.opts.Transport)
	}
	for _, rate := range b.opts.Rates {
		if rate <= 0 {
			return errors.Errorf("rate must be > 0, got %d", rate)
		}
	}
	return nil
}

// Run tests method against every node and prints requested metrics,
// dry run only prints the plan
func (b *Bench) Run(ctx context.Context, method string, nodes []string, dry bool, metrics []string) error {
	reports, err := b.Test(ctx, method, nodes, dry, metrics)
	if err != nil {
		return err
	}
	for _, rep := range reports {
		if err := b.printReport(rep, metrics); err != nil {
			return err
		}
	}
	return nil
}

// Test tests method against every node sequentially, nodes are never attacked concurrently
func (b *Bench) Test(ctx context.Context, method string, nodes []string, dry bool, metrics []string) ([]*NodeReport, error) {
	if err := b.validate(method, nodes, metrics); err != nil {
		return nil, err
	}
	if dry {
		b.printPlan(method, nodes)
		return []*NodeReport{}, nil
	}
	reports := make([]*NodeReport, 0, len(nodes))
	for _, node := range nodes {
		rep, err := b.testNode(ctx, method, node)
		if err != nil {
			return nil, errors.Wrapf(err, "test %s against %s", method, node)
		}
		if b.opts.OutputDir != "" {
			if err := b.writeSummary(rep); err != nil {
				return nil, err
			}
			b.plotSweep(rep)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (b *Bench) testNode(ctx context.Context, method string, node string) (*NodeReport, error) {
	l := b.L.With("method", method, "node", node)
	l.Infof("sampling %d blocks", b.opts.SampleBlocks)
	sample, err := SampleChain(ctx, node, b.opts.SampleBlocks, NewLoggingHTTPClient(b.opts.DumpTransport, b.opts.AttackerTimeoutSec))
	if err != nil {
		return nil, err
	}
	l.Infof("sampled: latest block %d, %d txs, %d addresses, %d contracts",
		sample.Latest, len(sample.TxHashes), len(sample.Addresses), len(sample.Contracts))
	calls, err := GenerateCalls(method, sample, b.opts.Calls)
	if err != nil {
		return nil, err
	}
	data := make([]interface{}, 0, len(calls))
	for _, c := range calls {
		data = append(data, c)
	}

	rep := &NodeReport{
		Node:        node,
		Method:      method,
		Transport:   b.opts.Transport,
		DurationSec: b.opts.DurationSec,
		Results:     make([]RateResult, 0, len(b.opts.Rates)),
	}
	for _, rate := range b.opts.Rates {
		r, err := NewRunner(b.runnerConfig(method, node, rate), AttackerFromString(b.opts.Transport), NewSharedDataSlice(data))
		if err != nil {
			return nil, err
		}
		m, err := r.Run(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "rate %d", rate)
		}
		if atomic.LoadInt64(&r.Failed) > 0 {
			return nil, errors.Wrapf(ErrRunFailed, "rate %d, errors: %v", rate, m.Errors)
		}
		l.Infof("rate %d done: requests %d, success %.4f, throughput %.2f", rate, m.Requests, m.Success, m.Throughput)
		rep.Results = append(rep.Results, RateResult{Rate: rate, Metrics: m})
	}
	return rep, nil
}

func (b *Bench) runnerConfig(method string, node string, rate int) *RunnerConfig {
	cfg := &RunnerConfig{
		TargetUrl:        node,
		Name:             fmt.Sprintf("%s_%s_%d", method, SafeName(node), rate),
		SystemMode:       OpenWorldSystem,
		Attackers:        1,
		AttackerTimeout:  b.opts.AttackerTimeoutSec,
		StartRPS:         rate,
		TestTimeSec:      b.opts.DurationSec,
		DumpTransport:    b.opts.DumpTransport,
		GoroutinesDump:   b.opts.GoroutinesDump,
		FailOnFirstError: b.opts.FailOnFirstError,
		LogLevel:         b.opts.LogLevel,
		LogEncoding:      b.opts.LogEncoding,
		ReportOptions: &ReportOptions{
			Dir:  b.opts.OutputDir,
			CSV:  b.opts.OutputDir != "" && (b.opts.CSV || b.opts.HTML || b.opts.PNG),
			HTML: b.opts.HTML,
			PNG:  b.opts.PNG,
		},
	}
	if b.opts.Prometheus {
		cfg.Prometheus = &PrometheusOptions{Enable: true, Port: b.opts.PrometheusPort}
	}
	return cfg
}

func (b *Bench) printPlan(method string, nodes []string) {
	fmt.Fprintf(b.opts.Out, "dry run: %s, transport %s, %ds per rate\n", method, b.opts.Transport, b.opts.DurationSec)
	table := tablewriter.NewWriter(b.opts.Out)
	table.SetHeader([]string{"node", "rate (rps)", "duration (s)", "requests"})
	for _, node := range nodes {
		for _, rate := range b.opts.Rates {
			table.Append([]string{
				node,
				strconv.Itoa(rate),
				strconv.Itoa(b.opts.DurationSec),
				strconv.Itoa(rate * b.opts.DurationSec),
			})
		}
	}
	table.Render()
}

func (b *Bench) printReport(rep *NodeReport, metrics []string) error {
	fmt.Fprintf(b.opts.Out, "%s @ %s (%ds per rate)\n", rep.Method, rep.Node, rep.DurationSec)
	table := tablewriter.NewWriter(b.opts.Out)
	table.SetHeader(append([]string{"rate (rps)"}, metrics...))
	for _, res := range rep.Results {
		row := []string{strconv.Itoa(res.Rate)}
		for _, name := range metrics {
			v, err := MetricValue(name, res.Metrics)
			if err != nil {
				return err
			}
			row = append(row, formatMetric(name, v))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func formatMetric(name string, v float64) string {
	switch name {
	case "requests":
		return strconv.FormatFloat(v, 'f', 0, 64)
	case "success":
		return strconv.FormatFloat(v, 'f', 4, 64)
	case "throughput", "rate":
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 5, 64)
	}
}

func (b *Bench) reportPath(rep *NodeReport, prefix, ext string) string {
	return filepath.Join(b.opts.OutputDir, fmt.Sprintf("%s_%s_%s.%s", prefix, rep.Method, SafeName(rep.Node), ext))
}

func (b *Bench) writeSummary(rep *NodeReport) error {
	data, err := rpcJSON.MarshalIndent(rep, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	f, err := CreateFileOrReplace(b.reportPath(rep, "summary", "json"))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return errors.Wrap(err, "write summary")
}

// plotSweep renders metrics over rates, chart errors are not fatal
func (b *Bench) plotSweep(rep *NodeReport) {
	if !b.opts.HTML && !b.opts.PNG {
		return
	}
	rates := make([]float64, 0, len(rep.Results))
	latencies := make(map[string][]float64)
	for _, res := range rep.Results {
		rates = append(rates, float64(res.Rate))
		for _, name := range []string{"mean", "p50", "p90", "p95", "p99"} {
			v, _ := MetricValue(name, res.Metrics)
			latencies[name] = append(latencies[name], v*1000)
		}
	}
	title := fmt.Sprintf("%s @ %s", rep.Method, rep.Node)
	if b.opts.HTML {
		line, err := SweepChart(title, rates, latencies)
		if err == nil {
			err = RenderEChart(line, b.reportPath(rep, "sweep", "html"))
		}
		if err != nil {
			b.L.Errorf("sweep html chart: %v", err)
		}
	}
	if b.opts.PNG {
		c, err := LatencySweepChart(title, rates, latencies)
		if err == nil {
			err = RenderChart(c, b.reportPath(rep, "sweep", "png"))
		}
		if err != nil {
			b.L.Errorf("sweep png chart: %v", err)
		}
	}
}
