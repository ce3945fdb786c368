/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package main

import (
	"os"
	"time"

	"github.com/insolar/rpcflood"
	"github.com/spf13/cobra"
)

func main() {
	var (
		listen  string
		latency time.Duration
	)
	l := rpcflood.NewLogger("info", "console")
	cmd := &cobra.Command{
		Use:          "dummy_node",
		Short:        "Serves a small deterministic chain over json-rpc",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			n, err := rpcflood.RunDummyNode(listen, latency)
			if err != nil {
				return err
			}
			l.Infof("dummy node is listening on %s, latency %s", n.Addr, latency)
			select {}
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "0.0.0.0:8545", "Listen address")
	cmd.Flags().DurationVar(&latency, "latency", time.Millisecond, "Response latency")
	if err := cmd.Execute(); err != nil {
		l.Error(err)
		os.Exit(1)
	}
}
