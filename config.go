/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// SystemMode defines how attackers consume schedule tokens
type SystemMode int

const (
	// PrivateSystem fixed pool of attackers, every attacker waits for response before taking next token,
	// so slow node lowers achieved rps
	PrivateSystem SystemMode = iota
	// OpenWorldSystem every token is fired in a separate goroutine, latency does not affect the schedule
	OpenWorldSystem
)

func (m SystemMode) String() string {
	switch m {
	case PrivateSystem:
		return "private"
	case OpenWorldSystem:
		return "open_world"
	default:
		return "unknown"
	}
}

// ReportOptions selects which artifacts runner writes after the test
type ReportOptions struct {
	// Dir directory for report files, current dir if empty
	Dir string
	// CSV writes raw requests log and per tick percentiles
	CSV bool
	// HTML renders percentiles chart, requires CSV
	HTML bool
	// PNG renders percentiles chart, requires CSV
	PNG bool
	// Stream sends every completed tick batch to Runner.OutResults
	Stream bool
}

type PrometheusOptions struct {
	Enable bool
	Port   int
}

// RunnerConfig runner configuration
type RunnerConfig struct {
	// TargetUrl target base url
	TargetUrl string
	// Name of a runner instance
	Name string
	// SystemMode PrivateSystem|OpenWorldSystem
	SystemMode SystemMode
	// Attackers constant amount of attackers
	Attackers int
	// AttackerTimeout timeout of attacker, seconds
	AttackerTimeout int
	// StartRPS start amount of requests per second
	StartRPS int
	// StepDurationSec duration of step in which rps is increased by StepRPS, 0 means constant load
	StepDurationSec int
	// StepRPS amount of requests per second which will be added in next step
	StepRPS int
	// TestTimeSec test timeout
	TestTimeSec int
	// WaitBeforeSec time to wait before start in case we didn't know start criteria
	WaitBeforeSec int
	// SuccessRatio fails the test when tick success ratio is lower, 0 disables the check
	SuccessRatio float64
	// DumpTransport dump http requests to stdout
	DumpTransport bool
	// GoroutinesDump dumps goroutines on exit signal
	GoroutinesDump bool
	// FailOnFirstError stops the test on first failed request
	FailOnFirstError bool
	// ReportOptions report artifacts
	ReportOptions *ReportOptions
	// Prometheus exporter options
	Prometheus *PrometheusOptions
	// LogLevel debug|info, etc.
	LogLevel string
	// LogEncoding json|console
	LogEncoding string
}

// Validate checks all settings and returns every problem found
func (c RunnerConfig) Validate() error {
	var result *multierror.Error
	if c.SystemMode == PrivateSystem && c.Attackers <= 0 {
		result = multierror.Append(result, errors.New("please set attackers > 0"))
	}
	if c.AttackerTimeout <= 0 {
		result = multierror.Append(result, errors.New("please set attacker timeout > 0, seconds"))
	}
	if c.StartRPS <= 0 {
		result = multierror.Append(result, errors.New("please set start rps > 0"))
	}
	if c.StepDurationSec < 0 {
		result = multierror.Append(result, errors.New("please set step duration >= 0, seconds"))
	}
	if c.StepRPS < 0 {
		result = multierror.Append(result, errors.New("please set step rps >= 0"))
	}
	if c.TestTimeSec <= 0 {
		result = multierror.Append(result, errors.New("please set test time > 0, seconds"))
	}
	if c.SuccessRatio < 0 || c.SuccessRatio > 1 {
		result = multierror.Append(result, errors.New("please set success ratio in [0, 1]"))
	}
	return result.ErrorOrNil()
}

// DefaultCfgValues fills optional settings
func (c *RunnerConfig) DefaultCfgValues() {
	if c.Name == "" {
		c.Name = "runner"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogEncoding == "" {
		c.LogEncoding = "console"
	}
	if c.ReportOptions == nil {
		c.ReportOptions = &ReportOptions{}
	}
	if c.SystemMode == OpenWorldSystem && c.Attackers <= 0 {
		c.Attackers = 1
	}
}
