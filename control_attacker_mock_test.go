/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"context"
	"sync/atomic"
	"time"
)

// ControlAttackerMock sleeps for runner controlled time, fails once signaled through serviceError
type ControlAttackerMock struct {
	name         int
	serviceError chan bool
	r            *Runner
}

func (a *ControlAttackerMock) Clone(r *Runner) Attack {
	return &ControlAttackerMock{
		name:         1,
		serviceError: make(chan bool),
		r:            r,
	}
}

func (a *ControlAttackerMock) Setup(_ RunnerConfig) error {
	return nil
}

func (a *ControlAttackerMock) Do(ctx context.Context) DoResult {
	select {
	case <-a.serviceError:
		a.r.L.Infof("service error happens")
		return DoResult{RequestLabel: a.r.Name, Error: "service error"}
	default:
	}
	sleepTime := atomic.LoadInt64(&a.r.controlled.Sleep)
	select {
	case <-time.After(time.Duration(sleepTime) * time.Millisecond):
		return DoResult{RequestLabel: a.r.Name}
	case <-ctx.Done():
		return DoResult{RequestLabel: a.r.Name, Error: errAttackDoTimedOut}
	}
}

func (a *ControlAttackerMock) Teardown() error {
	return nil
}

func NewControlMockAttacker(name int, serviceError chan bool, r *Runner) *ControlAttackerMock {
	return &ControlAttackerMock{name, serviceError, r}
}

// DeadlineAttackerMock fails with own timer exactly at ctx deadline, before ctx is done
type DeadlineAttackerMock struct {
	r *Runner
}

func (a *DeadlineAttackerMock) Clone(r *Runner) Attack {
	return &DeadlineAttackerMock{r: r}
}

func (a *DeadlineAttackerMock) Setup(_ RunnerConfig) error {
	return nil
}

func (a *DeadlineAttackerMock) Do(ctx context.Context) DoResult {
	deadline, _ := ctx.Deadline()
	time.Sleep(time.Until(deadline))
	return DoResult{RequestLabel: a.r.Name, Error: "timeout"}
}

func (a *DeadlineAttackerMock) Teardown() error {
	return nil
}
