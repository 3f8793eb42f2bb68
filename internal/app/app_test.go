package app_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/profilescan/internal/app"
)

type fixture struct {
	dir   string
	sites string
	db    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	t.Setenv("PROFILESCAN_CONFIG", "")

	mux := http.NewServeMux()
	mux.HandleFunc("/u/alice", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("alice's profile page, 5 followers"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	sites := filepath.Join(dir, "sites.json")
	cfg := fmt.Sprintf(`{"Example": {"url": "%s/u/{}"}, "Broken": {}}`, srv.URL)
	require.NoError(t, os.WriteFile(sites, []byte(cfg), 0o600))

	return fixture{dir: dir, sites: sites, db: filepath.Join(dir, "scan_data.db")}
}

func (f fixture) run(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	base := []string{"--no-color", "--sites", f.sites, "--cache", f.db, "--results", filepath.Join(f.dir, "results")}
	code := app.Run(context.Background(), append(base, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunScanThenCache(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run("", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Starting scan for 'alice'...")
	assert.Contains(t, out, "Live Scanning 2 sites:")
	assert.Contains(t, out, "✅ Example: FOUND")
	assert.Contains(t, out, "❌ Broken: ERROR (0.00s)")
	assert.Contains(t, out, "Found 1 profiles out of 2 sites")
	assert.Contains(t, out, "Username: alice")
	assert.NotContains(t, out, "Cached Results:")

	code, out, errOut = f.run("", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Cached Results:")
	assert.Contains(t, out, "● Example: FOUND")
	assert.Contains(t, out, "● Broken: ERROR")
	assert.NotContains(t, out, "Live Scanning")
	assert.Contains(t, out, "Found 1 profiles out of 2 sites")
}

func TestRunPromptsForUsername(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run("  alice \n", "--cache", "none")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Enter username to scan:")
	assert.Contains(t, out, "Starting scan for 'alice'...")
}

func TestRunEmptyUsername(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run("\n")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "no username provided")
	assert.NotContains(t, out, "Starting scan")
}

func TestRunExportAndMetrics(t *testing.T) {
	f := newFixture(t)
	metricsPath := filepath.Join(f.dir, "profilescan.prom")

	code, out, errOut := f.run("", "--export", "txt", "--metrics-file", metricsPath, "--platforms", "example", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "[i] Using 1 platform(s)")
	assert.Contains(t, out, "Found 1 profiles out of 1 sites")

	report, err := os.ReadFile(filepath.Join(f.dir, "results", "alice", "report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Example")
	assert.NotContains(t, string(report), "Broken")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `profilescan_probes_total{verdict="FOUND"} 1`)
}

func TestRunUsageErrors(t *testing.T) {
	f := newFixture(t)

	code, _, _ := f.run("", "--export", "csv", "alice")
	assert.Equal(t, 2, code)

	code, out, _ := f.run("", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "usage:")
}

func TestRunCreatesDefaultSitesFile(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.dir, "fresh.json")

	// The defaults point at real sites; a cancelled context keeps every
	// probe off the network.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := app.Run(ctx, []string{"--no-color", "--sites", missing, "--cache", "none", "alice"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "[!] Created default "+missing)
	assert.Contains(t, stdout.String(), "Found 0 profiles out of 5 sites")
	assert.FileExists(t, missing)
}
