package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type benchCall struct {
	method  string
	nodes   []string
	dry     bool
	metrics []string
}

type recordingBench struct {
	calls  []benchCall
	failAt int
	err    error
}

func (b *recordingBench) Run(_ context.Context, method string, nodes []string, dry bool, metrics []string) error {
	b.calls = append(b.calls, benchCall{method: method, nodes: nodes, dry: dry, metrics: append([]string(nil), metrics...)})
	if b.failAt > 0 && len(b.calls) == b.failAt {
		return b.err
	}
	// callers must not see mutations of previous calls
	metrics[0] = "mutated"
	return nil
}

func mustConfig(t *testing.T, raw string) Config {
	cfg, err := NewConfig(raw)
	require.NoError(t, err)
	return cfg
}

func TestRunOrder(t *testing.T) {
	b := &recordingBench{}
	out := &bytes.Buffer{}
	err := New(mustConfig(t, "http://a,http://b"), b, WithOutput(out)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, b.calls, len(Methods())*2)
	i := 0
	for _, m := range Methods() {
		for _, node := range []string{"http://a", "http://b"} {
			require.Equal(t, m, b.calls[i].method)
			require.Equal(t, []string{node}, b.calls[i].nodes)
			i++
		}
	}
	require.Equal(t, "eth_call", b.calls[0].method)
	require.Equal(t, "eth_getBalance", b.calls[2].method)
}

func TestRunArgs(t *testing.T) {
	b := &recordingBench{}
	err := New(mustConfig(t, "http://a"), b, WithOutput(&bytes.Buffer{})).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, b.calls, 9)
	for _, c := range b.calls {
		require.False(t, c.dry)
		require.Len(t, c.nodes, 1)
		require.Equal(t, []string{"success", "throughput", "mean", "p50", "p90", "p95", "p99"}, c.metrics)
	}
	require.Equal(t, []string{"success", "throughput", "mean", "p50", "p90", "p95", "p99"}, Metrics())
}

func TestRunOutput(t *testing.T) {
	out := &bytes.Buffer{}
	err := New(mustConfig(t, "http://a,http://b"), &recordingBench{}, WithOutput(out)).Run(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(Methods())*3)
	require.Equal(t, []string{"eth_call", "http://a", "http://b", "eth_getBalance"}, lines[:4])
}

func TestRunAbortsOnError(t *testing.T) {
	benchErr := errors.New("node is down")
	b := &recordingBench{failAt: 4, err: benchErr}
	out := &bytes.Buffer{}
	err := New(mustConfig(t, "http://a,http://b,http://c"), b, WithOutput(out)).Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, benchErr))
	require.Contains(t, err.Error(), "eth_getBalance")
	require.Contains(t, err.Error(), "http://a")
	require.Len(t, b.calls, 4)
}

func TestRunWithoutEndpoints(t *testing.T) {
	b := &recordingBench{}
	err := New(Config{}, b, WithOutput(&bytes.Buffer{})).Run(context.Background())
	require.True(t, errors.Is(err, ErrNoEndpoints))
	require.Empty(t, b.calls)
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig("")
	require.True(t, errors.Is(err, ErrNoEndpoints))
	require.Equal(t, "ENDPOINTS env var not found", err.Error())

	cfg, err := NewConfig(" http://a ,http://a,,bad")
	require.NoError(t, err)
	require.Equal(t, []string{" http://a ", "http://a", "", "bad"}, cfg.Endpoints())

	eps := cfg.Endpoints()
	eps[0] = "changed"
	require.Equal(t, " http://a ", cfg.Endpoints()[0])
}

func writeEnvFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv(EndpointsKey, "")
	cfg, err := LoadConfig(writeEnvFile(t, "ENDPOINTS=http://file1:8545,http://file2:8545\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"http://file1:8545", "http://file2:8545"}, cfg.Endpoints())
}

func TestLoadConfigEnvWins(t *testing.T) {
	t.Setenv(EndpointsKey, "http://env:8545")
	cfg, err := LoadConfig(writeEnvFile(t, "ENDPOINTS=http://file:8545\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"http://env:8545"}, cfg.Endpoints())
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv(EndpointsKey, "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.True(t, errors.Is(err, ErrNoEndpoints))

	_, err = LoadConfig(writeEnvFile(t, "OTHER=1\n"))
	require.True(t, errors.Is(err, ErrNoEndpoints))
}
