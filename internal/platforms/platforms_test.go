package platforms_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/profilescan/internal/platforms"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.json")

	list, notice, err := platforms.Load(path)
	require.NoError(t, err)
	assert.Contains(t, string(notice), "Created default")
	assert.Equal(t, platforms.Defaults(), list)

	// The written file round-trips in the same order.
	again, notice, err := platforms.Load(path)
	require.NoError(t, err)
	assert.Empty(t, notice)
	assert.Equal(t, []string{"GitHub", "Twitter", "Instagram", "Reddit", "YouTube"}, again.Names())
	assert.Equal(t, "https://reddit.com/user/{}", again[3].URL)
}

func TestLoadMalformedFallsBack(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":    `{"GitHub": {"url": `,
		"notObject": `["https://github.com/{}"]`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sites.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			list, notice, err := platforms.Load(path)
			require.NoError(t, err)
			assert.Contains(t, string(notice), "Error loading")
			assert.Equal(t, platforms.Defaults(), list)
		})
	}
}

func TestParseKeepsOrderAndMarksMalformed(t *testing.T) {
	raw := []byte(`{
		"$schema": "data.schema.json",
		"Zeta": {"url": "https://zeta.test/{}"},
		"Alpha": {},
		"Mid": {"url": 42, "regexCheck": "^[a-z]+$"},
		"Str": "https://not-an-object.test/{}"
	}`)

	list, err := platforms.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"Zeta", "Alpha", "Mid", "Str"}, list.Names())

	assert.Equal(t, "https://zeta.test/{}", list[0].URL)
	assert.Empty(t, list[1].URL)
	assert.Empty(t, list[2].URL)
	assert.Equal(t, "^[a-z]+$", list[2].RegexCheck)
	assert.Empty(t, list[3].URL)
}

func TestFilter(t *testing.T) {
	all := platforms.Defaults()

	got, unknown := platforms.Filter(all, []string{"reddit", " GITHUB ", "Myspace"})
	assert.Equal(t, []string{"GitHub", "Reddit"}, got.Names())
	assert.Equal(t, []string{"Myspace"}, unknown)

	got, unknown = platforms.Filter(all, []string{"nope"})
	assert.Equal(t, all, got)
	assert.Equal(t, []string{"nope"}, unknown)

	got, unknown = platforms.Filter(all, nil)
	assert.Equal(t, all, got)
	assert.Empty(t, unknown)
}

func TestUpdateFromRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"Example": {"url": "https://example.test/{}"}}`))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "sites.json")
	require.NoError(t, platforms.UpdateFromRemote(context.Background(), srv.Client(), "ua", srv.URL+"/data.json", dest))

	list, notice, err := platforms.Load(dest)
	require.NoError(t, err)
	assert.Empty(t, notice)
	assert.Equal(t, []string{"Example"}, list.Names())

	err = platforms.UpdateFromRemote(context.Background(), srv.Client(), "ua", srv.URL+"/broken", dest)
	assert.ErrorContains(t, err, "download failed")
}
