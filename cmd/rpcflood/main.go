/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/insolar/rpcflood"
	"github.com/insolar/rpcflood/driver"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		opts    = rpcflood.DefaultOptions()
	)
	cmd := &cobra.Command{
		Use:   "rpcflood",
		Short: "Benchmarks ethereum json-rpc nodes",
		Long: `Runs a load test of every supported eth_* method against every node
listed in ENDPOINTS (comma separated, read from env or .env file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := driver.LoadConfig(envFile)
			if err != nil {
				return err
			}
			bench := rpcflood.New(opts)
			return driver.New(cfg, bench, driver.WithLogger(bench.L.SugaredLogger)).Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", driver.DefaultEnvFile,
		"Env file loaded before reading ENDPOINTS")
	flags.IntSliceVar(&opts.Rates, "rates", opts.Rates,
		"Request rates tested one after another, rps")
	flags.IntVar(&opts.DurationSec, "duration", opts.DurationSec,
		"Duration of every rate, seconds")
	flags.StringVar(&opts.Transport, "transport", opts.Transport,
		fmt.Sprintf("Requests transport: %v", rpcflood.RegisteredAttackers()))
	flags.IntVar(&opts.AttackerTimeoutSec, "timeout", opts.AttackerTimeoutSec,
		"Single request timeout, seconds")
	flags.IntVar(&opts.SampleBlocks, "sample-blocks", opts.SampleBlocks,
		"Latest blocks sampled to build call params")
	flags.IntVar(&opts.Calls, "calls", opts.Calls,
		"Distinct calls generated per test")
	flags.StringVar(&opts.OutputDir, "out-dir", "",
		"Directory for summaries and reports, nothing is written if empty")
	flags.BoolVar(&opts.CSV, "csv", false,
		"Write requests log and percentiles csv")
	flags.BoolVar(&opts.HTML, "html", false,
		"Render html charts")
	flags.BoolVar(&opts.PNG, "png", false,
		"Render png charts")
	flags.BoolVar(&opts.FailOnFirstError, "fail-fast", false,
		"Stop and fail the run on first failed request")
	flags.BoolVar(&opts.GoroutinesDump, "goroutines-dump", false,
		"Dump goroutines when interrupted")
	flags.BoolVar(&opts.Prometheus, "prometheus", false,
		"Export per tick metrics for prometheus")
	flags.IntVar(&opts.PrometheusPort, "prometheus-port", rpcflood.DefaultPrometheusPort,
		"Prometheus exporter port")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel,
		"Log level: debug|info|warn|error")
	flags.StringVar(&opts.LogEncoding, "log-encoding", opts.LogEncoding,
		"Log encoding: console|json")
	flags.BoolVar(&opts.DumpTransport, "dump", false,
		"Dump http requests and responses of sampling and every transport")
	return cmd
}
