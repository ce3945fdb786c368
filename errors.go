/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"github.com/pkg/errors"
)

var (
	errAttackDoTimedOut = "attack Do(ctx) timeout"
	errAttackerSetup    = errors.New("error when setup attacker")
	errNoTestData       = errors.New("runner test data is not a shared calls slice")

	// ErrUnknownMethod method has no call generator
	ErrUnknownMethod = errors.New("unknown rpc method")
	// ErrUnknownMetric metric can't be computed from run results
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrUnknownTransport no attacker registered with such name
	ErrUnknownTransport = errors.New("unknown transport")
	// ErrNoSampleData node returned no data required to build calls
	ErrNoSampleData = errors.New("not enough sampled chain data")
	// ErrRunFailed run was stopped by a failed request
	ErrRunFailed = errors.New("run stopped on first error")
	// ErrNoNodes nothing to test
	ErrNoNodes = errors.New("no nodes to test")
)
