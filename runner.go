/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/ratelimit"
)

const (
	DefaultResultsQueueCapacity = 100_000
	DefaultOutResultsCapacity   = 1024
	MetricsLogFile              = "requests_%s_%s_%d.csv"
	PercsLogFile                = "percs_%s_%s_%d.csv"
	ReportGraphFile             = "percs_%s_%s_%d.html"
	ReportPNGFile               = "percs_%s_%s_%d.png"
)

var (
	ResultsCsvHeader = []string{"RequestLabel", "BeginTimeNano", "EndTimeNano", "Elapsed", "StatusCode", "Error"}
	PercsCsvHeader   = []string{"RequestLabel", "Tick", "RPS", "P50", "P95", "P99"}
)

// Controlled struct for adding test vars
type Controlled struct {
	Sleep int64
}

type TickMetrics struct {
	Samples  []AttackResult
	Metrics  *Metrics
	Reported bool
}

type attackToken struct {
	TargetRPS int
	Step      int
	Tick      int
}

func (a attackToken) String() string {
	return fmt.Sprintf("targetRPS: %d, step: %d, tick: %d", a.TargetRPS, a.Step, a.Tick)
}

// Runner provides test context for attacking target with constant amount of runners with a schedule
type Runner struct {
	// Name of a runner
	Name string
	// Cfg runner config
	Cfg *RunnerConfig
	// prototype from which all attackers cloned
	attackerPrototype Attack
	// target RPS for step, changed every step
	targetRPS int
	// metrics for every received tick (completed requests)
	receivedTickMetricsMu *sync.Mutex
	receivedTickMetrics   map[int]*TickMetrics
	// metrics for every request received during the test
	totalMetrics *Metrics
	// ratelimiter for keeping constant rps inside test step
	rl ratelimit.Limiter
	// TimeoutCtx test timeout ctx
	TimeoutCtx context.Context
	// test cancel func
	CancelFunc context.CancelFunc
	// next schedule chan to signal to attack
	next chan attackToken
	// attackers cloned for a prototype
	attackers   []Attack
	attackersWg *sync.WaitGroup

	// inner Results chan
	results chan AttackResult
	// outer Results chan, sends completed ticks in batches when ReportOptions.Stream is set
	OutResults chan []AttackResult
	// uniq error messages
	uniqErrors map[string]int
	// Failed means there some errors in test
	Failed int64
	// Report data
	Report *Report
	// data used to control attackers in test
	controlled Controlled
	// TestData data shared between attackers during test
	TestData       interface{}
	HTTPClient     *http.Client
	FastHTTPClient *FastHTTPClient
	PromReporter   *PromReporter
	L              *Logger
}

// NewRunner creates new runner with constant amount of attackers by RunnerConfig
func NewRunner(cfg *RunnerConfig, a Attack, data interface{}) (*Runner, error) {
	cfg.DefaultCfgValues()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid runner config")
	}
	r := &Runner{
		Name:                  cfg.Name,
		Cfg:                   cfg,
		attackerPrototype:     a,
		targetRPS:             cfg.StartRPS,
		next:                  make(chan attackToken),
		rl:                    ratelimit.New(cfg.StartRPS),
		attackers:             make([]Attack, 0),
		attackersWg:           &sync.WaitGroup{},
		results:               make(chan AttackResult, DefaultResultsQueueCapacity),
		receivedTickMetricsMu: &sync.Mutex{},
		receivedTickMetrics:   make(map[int]*TickMetrics),
		totalMetrics:          NewMetrics(),
		uniqErrors:            make(map[string]int),
		controlled:            Controlled{},
		TestData:              data,
		HTTPClient:            NewLoggingHTTPClient(cfg.DumpTransport, cfg.AttackerTimeout),
		FastHTTPClient:        NewLoggingFastHTTPClient(cfg.DumpTransport),
		L:                     newRunnerLogger(cfg).With("runner", cfg.Name),
	}
	if cfg.ReportOptions.Stream {
		r.OutResults = make(chan []AttackResult, DefaultOutResultsCapacity)
	}
	for i := 0; i < cfg.Attackers; i++ {
		a := r.attackerPrototype.Clone(r)
		if err := a.Setup(*r.Cfg); err != nil {
			return nil, errors.Wrapf(err, "%s #%d", errAttackerSetup, i)
		}
		r.attackers = append(r.attackers, a)
	}
	if cfg.ReportOptions.CSV {
		report, err := NewReport(r.Cfg)
		if err != nil {
			return nil, err
		}
		r.Report = report
	}
	if cfg.Prometheus != nil && cfg.Prometheus.Enable {
		r.PromReporter = NewPromReporter(cfg.Name, cfg.Prometheus.Port, r.L)
	}
	return r, nil
}

// Run runs the test, returns metrics of all requests completed before test end
func (r *Runner) Run(serverCtx context.Context) (*Metrics, error) {
	if serverCtx == nil {
		serverCtx = context.Background()
	}
	if r.Cfg.WaitBeforeSec > 0 {
		r.L.Infof("waiting for %d seconds before start", r.Cfg.WaitBeforeSec)
		select {
		case <-time.After(time.Duration(r.Cfg.WaitBeforeSec) * time.Second):
		case <-serverCtx.Done():
			return nil, serverCtx.Err()
		}
	}
	r.L.Infof("runner started, mode: %s, rps: %d", r.Cfg.SystemMode.String(), r.targetRPS)
	r.TimeoutCtx, r.CancelFunc = context.WithTimeout(serverCtx, time.Duration(r.Cfg.TestTimeSec)*time.Second)
	defer r.CancelFunc()

	collected := r.collectResults()
	for atkIdx, attacker := range r.attackers {
		r.attackersWg.Add(1)
		go func(a Attack, idx int) {
			defer r.attackersWg.Done()
			switch r.Cfg.SystemMode {
			case OpenWorldSystem:
				asyncAttack(a, r, idx)
			default:
				attack(a, r, idx)
			}
		}(attacker, atkIdx)
	}
	stopSignals := r.handleShutdownSignal()
	defer stopSignals()
	r.schedule()
	<-r.TimeoutCtx.Done()
	r.attackersWg.Wait()
	close(r.results)
	<-collected
	r.teardown()
	r.L.Infof("runner exited")

	r.L.Infof("max rps: %.2f", r.maxRPS())
	r.totalMetrics.update()
	if r.Cfg.ReportOptions.CSV {
		r.Report.flushLogs()
		r.Report.plot()
		r.Report.close()
	}
	// parent cancellation is an error, own timeout is a normal test end
	if err := serverCtx.Err(); err != nil {
		return r.totalMetrics, err
	}
	return r.totalMetrics, nil
}

// schedule creates schedule plan for a test
func (r *Runner) schedule() {
	go func() {
		defer close(r.next)
		var (
			currentStep         = 1
			currentTick         = 1
			ticksInStep         = r.Cfg.StepDurationSec
			totalRequestsFired  = 0
			requestsFiredInTick = 0
		)
		for {
			r.rl.Take()
			select {
			case <-r.TimeoutCtx.Done():
				r.L.Infof("total requests fired: %d", totalRequestsFired)
				return
			case r.next <- attackToken{
				TargetRPS: r.targetRPS,
				Step:      currentStep,
				Tick:      currentTick,
			}:
			}
			totalRequestsFired++
			requestsFiredInTick++
			if requestsFiredInTick == r.targetRPS {
				currentTick += 1
				requestsFiredInTick = 0
				r.L.Debugf("current active goroutines: %d", runtime.NumGoroutine())
				if ticksInStep > 0 && r.Cfg.StepRPS > 0 && currentTick%ticksInStep == 0 {
					r.targetRPS += r.Cfg.StepRPS
					r.rl = ratelimit.New(r.targetRPS)
					currentStep += 1
					r.L.Infof("next step: step -> %d, rps -> %d", currentStep, r.targetRPS)
				}
			}
		}
	}()
}

// collectResults collects attackers Results and writes them to one of report options,
// returned chan is closed when all results are processed
func (r *Runner) collectResults() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		totalRequestsStored := 0
		stopped := false
		for res := range r.results {
			r.L.Debugf("received result: %v", res)
			totalRequestsStored++

			errorForReport := "ok"
			if res.DoResult.Error != "" {
				r.uniqErrors[res.DoResult.Error] += 1
				r.L.Debugf("attacker error: %s", res.DoResult.Error)
				errorForReport = res.DoResult.Error
				if r.Cfg.FailOnFirstError && !stopped {
					stopped = true
					r.L.Infof("first error: %s, stopping", res.DoResult.Error)
					atomic.AddInt64(&r.Failed, 1)
					r.CancelFunc()
				}
			}

			if r.Cfg.ReportOptions.CSV {
				r.Report.writeResultEntry(res, errorForReport)
			}
			r.totalMetrics.add(res)
			r.processTickMetrics(res)
		}
		r.L.Infof("total requests stored: %d", totalRequestsStored)
		r.printErrors()
		if r.OutResults != nil {
			close(r.OutResults)
		}
	}()
	return done
}

// processTickMetrics add attack result to tick metrics, if it's last result in tick then report
func (r *Runner) processTickMetrics(res AttackResult) {
	// if no such tick, create new TickMetrics
	r.receivedTickMetricsMu.Lock()
	defer r.receivedTickMetricsMu.Unlock()
	if _, ok := r.receivedTickMetrics[res.AttackToken.Tick]; !ok {
		r.receivedTickMetrics[res.AttackToken.Tick] = &TickMetrics{
			make([]AttackResult, 0),
			NewMetrics(),
			false,
		}
	}
	currentTickMetrics := r.receivedTickMetrics[res.AttackToken.Tick]
	currentTickMetrics.Samples = append(currentTickMetrics.Samples, res)
	if len(currentTickMetrics.Samples) == res.AttackToken.TargetRPS && !currentTickMetrics.Reported {
		if r.OutResults != nil {
			r.OutResults <- currentTickMetrics.Samples
		}
		for _, s := range currentTickMetrics.Samples {
			currentTickMetrics.Metrics.add(s)
		}
		currentTickMetrics.Metrics.update()
		if r.Cfg.SuccessRatio > 0 && currentTickMetrics.Metrics.Success < r.Cfg.SuccessRatio {
			r.L.Infof("success: [ %.2f < %.2f ], stopping", currentTickMetrics.Metrics.Success, r.Cfg.SuccessRatio)
			atomic.AddInt64(&r.Failed, 1)
			r.CancelFunc()
		}
		r.L.Infof(
			"step: %d, tick: %d, rate [%.4f -> %v], perc: 50 [%v] 95 [%v] 99 [%v], # requests [%d], %% success [%.2f]",
			res.AttackToken.Step,
			res.AttackToken.Tick,
			currentTickMetrics.Metrics.Rate,
			res.AttackToken.TargetRPS,
			currentTickMetrics.Metrics.Latencies.P50,
			currentTickMetrics.Metrics.Latencies.P95,
			currentTickMetrics.Metrics.Latencies.P99,
			currentTickMetrics.Metrics.Requests,
			currentTickMetrics.Metrics.successLogEntry(),
		)
		if r.Cfg.ReportOptions.CSV {
			r.Report.writePercentilesEntry(res, currentTickMetrics.Metrics)
		}
		if r.PromReporter != nil {
			r.PromReporter.reportTick(currentTickMetrics)
		}
		currentTickMetrics.Reported = true
	}
}

// teardown closes attackers connections
func (r *Runner) teardown() {
	for i, a := range r.attackers {
		if err := a.Teardown(); err != nil {
			r.L.Errorf("attacker #%d teardown: %v", i, err)
		}
	}
}

// printErrors print uniq errors
func (r *Runner) printErrors() {
	if len(r.uniqErrors) == 0 {
		return
	}
	r.L.Infof("Uniq errors:")
	for e, count := range r.uniqErrors {
		r.L.Infof("error: %s, count: %d", e, count)
	}
}

// maxRPS calculate max rps for test among ticks
func (r *Runner) maxRPS() float64 {
	r.receivedTickMetricsMu.Lock()
	defer r.receivedTickMetricsMu.Unlock()
	rates := make([]float64, 0)
	for _, m := range r.receivedTickMetrics {
		if m.Reported {
			rates = append(rates, m.Metrics.Rate)
		}
	}
	return MaxRPS(rates)
}
