package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/verify"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func parseNDJSON(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

// TestCLI_ScanExportVerify drives scan, a sealed alerts export and verify
// against a SQLite store shared between invocations.
func TestCLI_ScanExportVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logs, 0o755))
	trail := `{"Records":[
		{"eventName":"ListBuckets","eventSource":"s3.amazonaws.com","userIdentity":{"type":"Root"},"eventTime":"2024-05-01T10:00:00Z"},
		{"eventName":"ScheduleKeyDeletion","eventSource":"kms.amazonaws.com","userIdentity":{"type":"IAMUser","userName":"mallory"},"eventTime":"2024-05-01T10:05:00Z"},
		{"eventName":"DescribeInstances","eventSource":"ec2.amazonaws.com"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(logs, "trail.json"), []byte(trail), 0o644))

	runLog := filepath.Join(dir, "runs.ndjson")
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgContent := fmt.Sprintf(`store:
  driver: sqlite
  uri: %q
source:
  kind: dir
  dir: %q
export:
  state_file: %q
logging:
  level: warn
  run_log: %q
`, filepath.Join(dir, "alerts.db"), logs, filepath.Join(dir, "chain_state.json"), runLog)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0o644))

	require.NoError(t, runCLI(t, "--config", cfgPath, "scan"))

	runs := parseNDJSON(t, runLog)
	require.Len(t, runs, 1)
	assert.Equal(t, float64(2), runs[0]["alerts_detected"])
	assert.Equal(t, "success", runs[0]["status"])

	export := filepath.Join(dir, "export.ndjson")
	require.NoError(t, runCLI(t, "--config", cfgPath, "alerts", "--output", export, "--seal"))

	lines := parseNDJSON(t, export)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, runs[0]["scan_id"], l["scanId"])
		assert.NotEmpty(t, l[verify.FieldHash])
		assert.Contains(t, l, "playbook")
	}

	require.NoError(t, runCLI(t, "--config", cfgPath, "verify", "--input", export))

	raw, err := os.ReadFile(export)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), "mallory", "alice", 1)
	require.NoError(t, os.WriteFile(export, []byte(tampered), 0o644))

	err = runCLI(t, "--config", cfgPath, "verify", "--input", export)
	assert.ErrorIs(t, err, verify.ErrChainBroken)
}

func writeTrailDir(t *testing.T, dir string) string {
	t.Helper()
	logs := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logs, 0o755))
	trail := `{"Records":[
		{"eventName":"StopLogging","eventSource":"cloudtrail.amazonaws.com","userIdentity":{"type":"IAMUser","userName":"eve"}},
		{"eventName":"DisableKey","eventSource":"kms.amazonaws.com","userIdentity":{"type":"IAMUser","userName":"eve"}}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(logs, "trail.json"), []byte(trail), 0o644))
	return logs
}

// TestCLI_DefaultStorePersists runs scan and alerts as separate invocations
// without naming a store driver; the alerts must survive the first command.
func TestCLI_DefaultStorePersists(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	logs := writeTrailDir(t, dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgContent := fmt.Sprintf(`store:
  path: %q
source:
  dir: %q
logging:
  level: warn
`, filepath.Join(dir, "trailguard.db"), logs)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0o644))

	require.NoError(t, runCLI(t, "--config", cfgPath, "scan"))
	_, err := os.Stat(filepath.Join(dir, "trailguard.db"))
	require.NoError(t, err)

	export := filepath.Join(dir, "alerts.ndjson")
	require.NoError(t, runCLI(t, "--config", cfgPath, "alerts", "--output", export))

	lines := parseNDJSON(t, export)
	require.Len(t, lines, 2)
	var rules []string
	for _, l := range lines {
		rules = append(rules, l["rule"].(string))
	}
	assert.ElementsMatch(t, []string{"CloudTrail Logging Change", "KMS Key Deactivated"}, rules)
}

func TestCLI_ScanRejectsMemoryStore(t *testing.T) {
	dir := t.TempDir()
	logs := writeTrailDir(t, dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgContent := fmt.Sprintf("store:\n  driver: memory\nsource:\n  dir: %q\nlogging:\n  level: warn\n", logs)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0o644))

	err := runCLI(t, "--config", cfgPath, "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}
