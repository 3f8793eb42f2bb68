package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/tdh8316/profilescan/internal/model"
)

const (
	FormatJSON = "json"
	FormatTXT  = "txt"
)

// ValidFormat reports whether format is an export format Export accepts.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatTXT
}

// Export writes the report to <dir>/<username>/report.<format> and returns
// the path written.
func Export(dir string, r model.Report, format string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = sonic.ConfigStd.MarshalIndent(r, "", "  ")
	case FormatTXT:
		data, err = renderText(r)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", errors.Wrap(err, "render report")
	}

	if !safeDirName(r.Username) {
		return "", fmt.Errorf("username %q cannot be used as a directory name", r.Username)
	}
	userDir := filepath.Join(dir, r.Username)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", userDir)
	}
	path := filepath.Join(userDir, "report."+format)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// safeDirName reports whether name stays a single entry directly under the
// export directory.
func safeDirName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// renderText lays out every result as a plain table followed by the tally.
func renderText(r model.Report) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Username: %s\nScan ID: %s\nStarted: %s\n\n",
		r.Username, r.ScanID, r.StartedAt.Format("2006-01-02 15:04:05"))

	table := tablewriter.NewTable(&buf)
	table.Header("Site", "Status", "Code", "Time", "Cached", "URL")
	for _, res := range r.All() {
		cached := "no"
		if res.Cached {
			cached = "yes"
		}
		if err := table.Append(
			res.Site,
			string(res.Status),
			fmt.Sprintf("%d", res.HTTPCode),
			fmt.Sprintf("%.2fs", res.ResponseTime),
			cached,
			res.URL,
		); err != nil {
			return nil, err
		}
	}
	if err := table.Render(); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "\nFound %d profiles out of %d sites\n", r.Found, r.Total)
	return buf.Bytes(), nil
}
