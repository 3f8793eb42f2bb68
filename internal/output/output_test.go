package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/profilescan/internal/model"
	"github.com/tdh8316/profilescan/internal/output"
)

func sampleReport() model.Report {
	return model.Report{
		ScanID:   "6f1c1a52-2b4e-4f7c-9a57-1f9b4a1d3c10",
		Username: "alice",
		Cached: []model.Result{
			{Site: "GitHub", URL: "https://github.com/alice", Status: model.VerdictFound, HTTPCode: 200, ResponseTime: 0.31, Cached: true},
		},
		Probed: []model.Result{
			{Site: "Example", URL: "https://example.test/alice", Status: model.VerdictFound, HTTPCode: 200, ResponseTime: 0.12},
			{Site: "Broken", URL: model.NoURL, Status: model.VerdictError},
		},
		Found:     2,
		Total:     3,
		StartedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatVerdict(t *testing.T) {
	for _, v := range []model.Verdict{model.VerdictFound, model.VerdictNotFound, model.VerdictError, model.VerdictTimeout} {
		assert.Equal(t, string(v), output.FormatVerdict(v, true))
	}

	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	got := output.FormatVerdict(model.VerdictFound, false)
	assert.NotEqual(t, "FOUND", got)
	assert.Contains(t, got, "FOUND")
	assert.Equal(t, "MAYBE", output.FormatVerdict("MAYBE", false))
}

func TestPrinterReport(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, true)

	p.Start("alice")
	p.Report(sampleReport())

	want := strings.Join([]string{
		"Starting scan for 'alice'...",
		"",
		"Cached Results:",
		"  ● GitHub: FOUND",
		"",
		"Live Scanning 2 sites:",
		"  ✅ Example: FOUND (0.12s)",
		"  ❌ Broken: ERROR (0.00s)",
		"",
		"Scan complete!",
		"   Found 2 profiles out of 3 sites",
		"   Username: alice",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestPrinterOmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, true)

	r := sampleReport()
	r.Probed = nil
	r.Found, r.Total = 1, 1
	p.Report(r)

	assert.Contains(t, buf.String(), "Cached Results:")
	assert.NotContains(t, buf.String(), "Live Scanning")
	assert.Contains(t, buf.String(), "Found 1 profiles out of 1 sites")
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := output.Export(dir, sampleReport(), output.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alice", "report.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.Report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 2, got.Found)
	require.Len(t, got.Probed, 2)
	assert.Equal(t, model.VerdictError, got.Probed[1].Status)
	assert.Contains(t, string(raw), `"siteName": "GitHub"`)
}

func TestExportText(t *testing.T) {
	dir := t.TempDir()
	path, err := output.Export(dir, sampleReport(), output.FormatTXT)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "Username: alice")
	for _, site := range []string{"GitHub", "Example", "Broken"} {
		assert.Contains(t, text, site)
	}
	assert.Contains(t, text, "ERROR")
	assert.Contains(t, text, "Found 2 profiles out of 3 sites")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := output.Export(t.TempDir(), sampleReport(), "csv")
	assert.Error(t, err)
	assert.False(t, output.ValidFormat("csv"))
	assert.True(t, output.ValidFormat("txt"))
}

func TestExportRejectsUnsafeUsernames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "results")

	for _, name := range []string{"../x", "a/b", "..", ".", `a\b`, ""} {
		r := sampleReport()
		r.Username = name
		path, err := output.Export(dir, r, output.FormatJSON)
		assert.Error(t, err, name)
		assert.Empty(t, path, name)
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
