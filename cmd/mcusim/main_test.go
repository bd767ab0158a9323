package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_GracefulStop(t *testing.T) {
	code, stdout, stderr := execute(t,
		"--max-ticks", "5",
		"--tick-period", "1ms",
		"--log-format", "json",
		"--log-level", "warn",
	)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "stopped: stop-event")
	assert.Contains(t, stdout, "ticks 5")
	assert.Contains(t, stdout, "final report")
	assert.Contains(t, stdout, "5 ticks")
}

func TestRun_NoBroadcast(t *testing.T) {
	code, stdout, stderr := execute(t, "--max-ticks", "2", "--tick-period", "1ms", "--no-broadcast", "--log-level", "error")
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "stopped: stop-event")
	assert.NotContains(t, stdout, "monitor:")
}

func TestRun_SetupFailure(t *testing.T) {
	code, _, stderr := execute(t, "--channel-capacity", "0")
	assert.Equal(t, exitSetup, code)
	assert.Contains(t, stderr, "Channel.Capacity")

	code, _, stderr = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitSetup, code)
	assert.Contains(t, stderr, "read config file")
}

func TestRun_ConfigFileAndMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timer:
  period: 1ms
  max_ticks: 14
  coupled_every: 7
peripherals: []
logging:
  level: error
  format: console
telemetry:
  metrics: true
`), 0o600))

	code, stdout, stderr := execute(t, "--config", path)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "UART_RX")
	assert.Contains(t, stdout, "mcusim.events.dispatched")
	assert.Contains(t, stdout, "mcusim.run.count")
}

func TestRun_SQLiteStoreAndReports(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	storeArgs := []string{"--store", "sqlite", "--store-path", dbPath, "--log-level", "error"}

	code, _, stderr := execute(t, append([]string{"--max-ticks", "3", "--tick-period", "1ms"}, storeArgs...)...)
	require.Equal(t, exitOK, code, stderr)

	code, stdout, stderr := execute(t, append([]string{"reports"}, storeArgs...)...)
	require.Equal(t, exitOK, code, stderr)
	runs := strings.Fields(stdout)
	require.Len(t, runs, 1)

	code, stdout, stderr = execute(t, append([]string{"reports", runs[0]}, storeArgs...)...)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "final report")
	assert.Contains(t, stdout, "3 ticks")

	code, _, stderr = execute(t, append([]string{"reports", "unknown-run"}, storeArgs...)...)
	assert.Equal(t, exitSetup, code)
	assert.Contains(t, stderr, "no reports")
}

func TestReports_RequiresSQLite(t *testing.T) {
	code, _, stderr := execute(t, "reports")
	assert.Equal(t, exitSetup, code)
	assert.Contains(t, stderr, "sqlite")
}
