/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// handleShutdownSignal exits on SIGINT/SIGTERM while the test is running, returns func to stop listening
func (r *Runner) handleShutdownSignal() func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-r.TimeoutCtx.Done():
			return
		case <-sigs:
			r.L.Infof("exit signal received, exiting")
			if r.Cfg.GoroutinesDump {
				buf := make([]byte, 1<<20)
				stacklen := runtime.Stack(buf, true)
				r.L.Infof("=== received SIGTERM ===\n*** goroutine dump...\n%s\n*** end\n", buf[:stacklen])
			}
			os.Exit(1)
		}
	}()
	return func() {
		signal.Stop(sigs)
	}
}

// CreateFileOrReplace creates file and all missing parent dirs, truncates existing file
func CreateFileOrReplace(fname string) (*os.File, error) {
	fpath, err := filepath.Abs(fname)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
		return nil, errors.Wrapf(err, "create dir for %s", fname)
	}
	file, err := os.Create(fpath)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", fname)
	}
	return file, nil
}

// SafeName makes string usable as a part of a file name, urls are reduced to host and port
func SafeName(s string) string {
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host + u.Path
	}
	return strings.Trim(unsafeNameChars.ReplaceAllString(s, "_"), "_")
}

func MaxRPS(array []float64) float64 {
	if len(array) == 0 {
		return 1
	}
	var max = array[0]
	for _, value := range array {
		if max < value {
			max = value
		}
	}
	return max
}
