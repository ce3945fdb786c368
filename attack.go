package rpcflood

import (
	"context"
	"sync"
	"time"
)

// Attack must be implemented by a service client.
type Attack interface {
	// Setup should establish the connection to the service
	// It may want to access the Config of the Runner.
	Setup(c RunnerConfig) error
	// Do performs one request and is executed in a separate goroutine.
	// The context is used to cancel the request on timeout.
	Do(ctx context.Context) DoResult
	// Teardown can be used to close the connection to the service
	Teardown() error
	// Clone should return a fresh new Attack
	// Make sure the new Attack has values for shared struct fields initialized at Setup.
	Clone(r *Runner) Attack
}

// attack receives schedule signal and attacks target calling Do() method, one request at a time
func attack(a Attack, r *Runner, num int) {
	l := r.L.With("attacker", num)
	for {
		select {
		case <-r.TimeoutCtx.Done():
			l.Debugf("stopping attacker")
			return
		case token, ok := <-r.next:
			if !ok {
				return
			}
			r.do(a, token)
		}
	}
}

// asyncAttack fires every received token in a separate goroutine, waits for in-flight requests before exit
func asyncAttack(a Attack, r *Runner, num int) {
	l := r.L.With("attacker", num)
	inflight := &sync.WaitGroup{}
	defer inflight.Wait()
	for {
		select {
		case <-r.TimeoutCtx.Done():
			l.Debugf("stopping attacker")
			return
		case token, ok := <-r.next:
			if !ok {
				return
			}
			inflight.Add(1)
			go func(t attackToken) {
				defer inflight.Done()
				r.do(a, t)
			}(token)
		}
	}
}

// do calls Do() with attacker timeout and sends AttackResult with timings
func (r *Runner) do(a Attack, token attackToken) {
	ctx, cancel := context.WithTimeout(r.TimeoutCtx, time.Duration(r.Cfg.AttackerTimeout)*time.Second)
	defer cancel()

	done := make(chan DoResult, 1)
	tStart := time.Now()
	go func() {
		done <- a.Do(ctx)
	}()
	var doResult DoResult
	select {
	case doResult = <-done:
	case <-ctx.Done():
		doResult = DoResult{RequestLabel: r.Name, Error: errAttackDoTimedOut}
	}
	tEnd := time.Now()

	// request was cut by the end of the test, it's not a target error,
	// transports with own deadline timers may fail before TimeoutCtx is done
	if r.TimeoutCtx.Err() != nil || r.afterTestEnd(tEnd) {
		return
	}
	r.results <- AttackResult{
		AttackToken: token,
		Begin:       tStart,
		End:         tEnd,
		Elapsed:     tEnd.Sub(tStart),
		DoResult:    doResult,
	}
}

func (r *Runner) afterTestEnd(t time.Time) bool {
	testEnd, ok := r.TimeoutCtx.Deadline()
	return ok && !t.Before(testEnd)
}
