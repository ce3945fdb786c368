/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommonRunnerConfigValidation(t *testing.T) {
	_, err := NewRunner(&RunnerConfig{
		Name:         "test_runner",
		SystemMode:   PrivateSystem,
		SuccessRatio: 2,
	}, &ControlAttackerMock{}, nil)
	require.Error(t, err)
	for _, msg := range []string{"attackers", "attacker timeout", "start rps", "test time", "success ratio"} {
		require.Contains(t, err.Error(), msg)
	}
}

func TestCommonRunnerDefaults(t *testing.T) {
	cfg := &RunnerConfig{
		SystemMode:      OpenWorldSystem,
		AttackerTimeout: 1,
		StartRPS:        1,
		TestTimeSec:     1,
	}
	r, err := NewRunner(cfg, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	require.Equal(t, "runner", r.Name)
	require.Equal(t, 1, cfg.Attackers)
	require.NotNil(t, cfg.ReportOptions)
	require.Nil(t, r.Report)
}

func TestCommonPrivateSystemRunnerSuccess(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		Attackers:       10,
		AttackerTimeout: 1,
		StartRPS:        8,
		StepDurationSec: 2,
		StepRPS:         2,
		TestTimeSec:     4,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	m, err := r.Run(context.TODO())
	require.NoError(t, err)
	require.Greater(t, m.Requests, uint64(0))
	require.Equal(t, 1.0, m.Success)
}

func TestCommonOpenWorldSystemRunnerSuccess(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      OpenWorldSystem,
		Attackers:       30,
		AttackerTimeout: 1,
		StartRPS:        100,
		StepDurationSec: 2,
		StepRPS:         20,
		TestTimeSec:     3,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	m, err := r.Run(context.TODO())
	require.NoError(t, err)
	require.Greater(t, m.Requests, uint64(100))
	require.Equal(t, 1.0, m.Success)
}

func TestCommonMultipleRunnersSuccess(t *testing.T) {
	cfg := &RunnerConfig{
		Name:            "test_runner",
		Attackers:       1,
		AttackerTimeout: 1,
		StartRPS:        1,
		StepDurationSec: 5,
		StepRPS:         2,
		TestTimeSec:     1,
		ReportOptions:   &ReportOptions{},
	}
	for _, mode := range []SystemMode{PrivateSystem, PrivateSystem, OpenWorldSystem, OpenWorldSystem} {
		cfg.SystemMode = mode
		r, err := NewRunner(cfg, &ControlAttackerMock{}, nil)
		require.NoError(t, err)
		_, err = r.Run(context.TODO())
		require.NoError(t, err)
	}
}

func TestCommonRunnerSuccessRatioGuard(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		Attackers:       10,
		AttackerTimeout: 1,
		StartRPS:        100,
		TestTimeSec:     5,
		SuccessRatio:    1,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	serviceError := make(chan bool)
	withControllableAttackers(ControllableConfig{
		R:               r,
		ControlChan:     serviceError,
		AttackersAmount: 100,
	})
	serviceErrorAfter(serviceError, 2*time.Second)
	start := time.Now()
	_, _ = r.Run(context.TODO())
	require.Equal(t, int64(1), r.Failed)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCommonRunnerFailOnFirstError(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:             "test_runner",
		Attackers:        10,
		AttackerTimeout:  1,
		StartRPS:         20,
		TestTimeSec:      10,
		FailOnFirstError: true,
		ReportOptions:    &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	serviceError := make(chan bool)
	withControllableAttackers(ControllableConfig{
		R:               r,
		ControlChan:     serviceError,
		AttackersAmount: 10,
	})
	serviceErrorAfter(serviceError, time.Second)
	start := time.Now()
	_, err = r.Run(context.TODO())
	require.NoError(t, err)
	require.Equal(t, int64(1), r.Failed)
	require.Equal(t, 1, r.uniqErrors["service error"])
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCommonRunnerHangedRequestsAfterTimeoutNoError(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      PrivateSystem,
		Attackers:       1,
		AttackerTimeout: 5,
		StartRPS:        1,
		TestTimeSec:     2,
		SuccessRatio:    1,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	// request still hangs when the test ends, but it's not an error because test has ended
	r.controlled.Sleep = 5000
	_, err = r.Run(context.TODO())
	require.NoError(t, err)
	require.Empty(t, r.uniqErrors)
	require.Equal(t, int64(0), r.Failed)
}

func TestCommonRunnerParentCancel(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      OpenWorldSystem,
		AttackerTimeout: 1,
		StartRPS:        10,
		TestTimeSec:     30,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	_, err = r.Run(ctx)
	require.Equal(t, context.DeadlineExceeded, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCommonRunnerMaxRPSPrivateSystem(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      PrivateSystem,
		Attackers:       20,
		AttackerTimeout: 1,
		StartRPS:        100,
		TestTimeSec:     5,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	r.controlled.Sleep = 300
	_, err = r.Run(context.TODO())
	require.NoError(t, err)
	// 20 attackers blocked for 300ms can't reach target rate
	require.Less(t, int(r.maxRPS()), 90)
}

func TestCommonRunnerConstantLoad(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      OpenWorldSystem,
		AttackerTimeout: 1,
		StartRPS:        30,
		TestTimeSec:     4,
		ReportOptions:   &ReportOptions{},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	r.controlled.Sleep = 300
	m, err := r.Run(context.TODO())
	require.NoError(t, err)
	require.GreaterOrEqual(t, int(r.maxRPS()), 25)
	require.Less(t, int(r.maxRPS()), 40)
	require.GreaterOrEqual(t, m.Latencies.P50, 300*time.Millisecond)
	require.Greater(t, m.Throughput, 0.0)
}

func TestCommonRunnerStreamResults(t *testing.T) {
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      OpenWorldSystem,
		AttackerTimeout: 1,
		StartRPS:        10,
		TestTimeSec:     3,
		ReportOptions:   &ReportOptions{Stream: true},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	batches := make(chan int, 1)
	go func() {
		n := 0
		for b := range r.OutResults {
			if len(b) == 10 {
				n++
			}
		}
		batches <- n
	}()
	_, err = r.Run(context.TODO())
	require.NoError(t, err)
	require.GreaterOrEqual(t, <-batches, 1)
}

func TestCommonReportMetrics(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRunner(&RunnerConfig{
		Name:            "test_runner",
		SystemMode:      PrivateSystem,
		Attackers:       10,
		AttackerTimeout: 1,
		StartRPS:        8,
		TestTimeSec:     4,
		ReportOptions: &ReportOptions{
			Dir:  dir,
			CSV:  true,
			HTML: true,
			PNG:  true,
		},
	}, &ControlAttackerMock{}, nil)
	require.NoError(t, err)
	r.controlled.Sleep = 100
	_, err = r.Run(context.TODO())
	require.NoError(t, err)
	for _, pattern := range []string{"requests_*.csv", "percs_*.csv", "percs_*.html", "percs_*.png"} {
		files, err := filepath.Glob(filepath.Join(dir, pattern))
		require.NoError(t, err)
		require.Len(t, files, 1, pattern)
	}
}
