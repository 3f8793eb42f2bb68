package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const DefaultFile = "sites.json"

// SherlockDataURL is a sherlock-style site database; its entries carry the
// same "url" and "regexCheck" fields this package reads.
const SherlockDataURL = "https://raw.githubusercontent.com/sherlock-project/sherlock/refs/heads/master/sherlock_project/resources/data.json"

// Platform is one site definition. URL holds a template with a single "{}"
// slot for the username, or "" when the entry had no usable url.
type Platform struct {
	Name       string `json:"-"`
	URL        string `json:"url"`
	RegexCheck string `json:"regexCheck,omitempty"`
}

// List keeps platforms in configuration order.
type List []Platform

func (l List) Names() []string {
	out := make([]string, len(l))
	for i, p := range l {
		out[i] = p.Name
	}
	return out
}

// Defaults is used when the sites file is missing or unusable.
func Defaults() List {
	return List{
		{Name: "GitHub", URL: "https://github.com/{}"},
		{Name: "Twitter", URL: "https://twitter.com/{}"},
		{Name: "Instagram", URL: "https://instagram.com/{}"},
		{Name: "Reddit", URL: "https://reddit.com/user/{}"},
		{Name: "YouTube", URL: "https://youtube.com/@{}"},
	}
}

// Notice describes a recovered problem or side effect of Load that the user
// should be told about. Empty when there is nothing to say.
type Notice string

// Load reads a sites file. A missing file is created with the defaults; an
// unreadable or malformed one is reported in the Notice and the defaults are
// used instead. The returned error is only set when creating the default
// file fails, and even then the defaults are returned.
func Load(filename string) (List, Notice, error) {
	raw, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		defaults := Defaults()
		if werr := writeFile(filename, defaults); werr != nil {
			return defaults, "", errors.Wrapf(werr, "create default %s", filename)
		}
		return defaults, Notice(fmt.Sprintf("Created default %s", filename)), nil
	}
	if err != nil {
		return Defaults(), Notice(fmt.Sprintf("Error loading %s: %v", filename, err)), nil
	}

	list, err := Parse(raw)
	if err != nil {
		return Defaults(), Notice(fmt.Sprintf("Error loading %s: %v", filename, err)), nil
	}
	return list, "", nil
}

// Parse decodes a JSON object of name -> {"url": ...} in document order and
// skips the top-level "$schema" key.
func Parse(raw []byte) (List, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, errors.New("top level must be an object of platforms")
	}

	var out List
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "$schema" {
			return true
		}

		p := Platform{Name: name}
		if value.IsObject() {
			if u := value.Get("url"); u.Type == gjson.String {
				p.URL = u.String()
			}
			if rc := value.Get("regexCheck"); rc.Type == gjson.String {
				p.RegexCheck = rc.String()
			}
		}
		out = append(out, p)
		return true
	})
	return out, nil
}

// Filter keeps the platforms named in selected (case-insensitive) in
// configuration order. Unknown names are returned separately. When nothing
// matches, the full list is returned.
func Filter(all List, selected []string) (List, []string) {
	if len(selected) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(selected))
	known := make(map[string]bool, len(all))
	for _, p := range all {
		known[strings.ToLower(p.Name)] = true
	}

	var unknown []string
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if known[key] {
			want[key] = true
		} else {
			unknown = append(unknown, s)
		}
	}

	out := make(List, 0, len(want))
	for _, p := range all {
		if want[strings.ToLower(p.Name)] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return all, unknown
	}
	return out, unknown
}

func writeFile(filename string, list List) error {
	// Build the object by hand so key order matches the list.
	var b strings.Builder
	b.WriteString("{\n")
	for i, p := range list {
		name, _ := json.Marshal(p.Name)
		entry, err := json.MarshalIndent(p, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  %s: %s", name, entry)
		if i < len(list)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filename, []byte(b.String()), 0o644)
}

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpdateFromRemote replaces destPath with the database at srcURL.
func UpdateFromRemote(ctx context.Context, client Doer, userAgent, srcURL, destPath string) error {
	if srcURL == "" {
		srcURL = SherlockDataURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a small snippet for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("download failed: %s (%s)", resp.Status, string(snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if _, err := Parse(body); err != nil {
		return errors.Wrap(err, "downloaded database")
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}
