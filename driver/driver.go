// Package driver runs a bench for every rpc method against every configured endpoint
package driver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var methods = []string{
	"eth_call",
	"eth_getBalance",
	"eth_getBlockByNumber",
	"eth_getCode",
	"eth_getLogs",
	"eth_getStorageAt",
	"eth_getTransactionByHash",
	"eth_getTransactionCount",
	"eth_getTransactionReceipt",
}

var metrics = []string{"success", "throughput", "mean", "p50", "p90", "p95", "p99"}

// Methods benchmarked methods, in run order
func Methods() []string {
	return append([]string(nil), methods...)
}

// Metrics requested from every bench run
func Metrics() []string {
	return append([]string(nil), metrics...)
}

// Bench runs a load test of one method against nodes
type Bench interface {
	Run(ctx context.Context, method string, nodes []string, dry bool, metrics []string) error
}

type Option func(d *Driver)

// WithOutput sets progress output, stdout by default
func WithOutput(w io.Writer) Option {
	return func(d *Driver) {
		d.out = w
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Driver) {
		d.l = l
	}
}

type Driver struct {
	cfg   Config
	bench Bench
	out   io.Writer
	l     *zap.SugaredLogger
}

func New(cfg Config, bench Bench, opts ...Option) *Driver {
	d := &Driver{
		cfg:   cfg,
		bench: bench,
		out:   os.Stdout,
		l:     zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run calls bench for every method and endpoint pair sequentially,
// first failed pair stops the run
func (d *Driver) Run(ctx context.Context) error {
	endpoints := d.cfg.Endpoints()
	if len(endpoints) == 0 {
		return ErrNoEndpoints
	}
	for _, method := range methods {
		fmt.Fprintln(d.out, method)
		for _, node := range endpoints {
			fmt.Fprintln(d.out, node)
			d.l.Debugw("bench started", "method", method, "node", node)
			if err := d.bench.Run(ctx, method, []string{node}, false, Metrics()); err != nil {
				return errors.Wrapf(err, "bench %s on %s", method, node)
			}
		}
	}
	return nil
}
