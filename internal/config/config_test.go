package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "students.json", cfg.RosterPath)
	assert.Equal(t, "familytree.json", cfg.TreePath)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)

	d, err := cfg.FetchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	assert.Error(t, cfg.Validate(), "base_url has no default")
	cfg.BaseURL = "https://example.org/data"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_HCLFile(t *testing.T) {
	path := writeFile(t, "rollcall.hcl", `
base_url    = "https://example.org/static"
tree_path   = "data/tree.json"
page_size   = 20

http {
  fetch_timeout = "3s"
}
`)
	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/static", cfg.BaseURL)
	assert.Equal(t, "data/tree.json", cfg.TreePath)
	assert.Equal(t, "students.json", cfg.RosterPath, "absent attributes keep defaults")
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.Equal(t, "3s", cfg.HTTP.FetchTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "rollcall.hcl", `base_url = "https://example.org/static"`)
	t.Setenv("ROLLCALL_BASE_URL", "/srv/rollcall")
	t.Setenv("ROLLCALL_QUERY_CACHE_SIZE", "16")
	t.Setenv("ROLLCALL_LISTEN", ":9090")
	t.Setenv("ROLLCALL_EMAIL_DOMAIN", "  ")

	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, "/srv/rollcall", cfg.BaseURL)
	assert.Equal(t, 16, cfg.QueryCacheSize)
	assert.Equal(t, ":9090", cfg.HTTP.Listen)
	assert.Equal(t, "iitk.ac.in", cfg.EmailDomain, "blank variables are ignored")
}

func TestLoad_DotEnv(t *testing.T) {
	const name = "ROLLCALL_PHOTO_URL"
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
	t.Cleanup(func() { _ = os.Unsetenv(name) })

	env := writeFile(t, "test.env", name+"=https://photos.example.org/%s.jpg\n")
	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "https://photos.example.org/%s.jpg", cfg.PhotoURL)
	assert.Equal(t, "https://photos.example.org/%s.jpg", cfg.MergeOptions().PhotoURL)
}

func TestLoad_Errors(t *testing.T) {
	empty := writeFile(t, "empty.env", "")

	_, err := Load(writeFile(t, "bad.hcl", `base_url = `), empty)
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("ROLLCALL_PAGE_SIZE", "many")
	_, err = Load("", empty)
	assert.ErrorContains(t, err, "ROLLCALL_PAGE_SIZE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://example.org" }, "unsupported scheme"},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, "page_size"},
		{"zero cache", func(c *Config) { c.QueryCacheSize = 0 }, "query_cache_size"},
		{"bad timeout", func(c *Config) { c.HTTP.FetchTimeout = "soon" }, "fetch_timeout"},
		{"negative timeout", func(c *Config) { c.HTTP.FetchTimeout = "-1s" }, "fetch_timeout"},
		{"no roster path", func(c *Config) { c.RosterPath = "" }, "roster_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseURL = "https://example.org"
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.BaseURL = "file:///srv/rollcall"
	cfg.PageSize = 0
	assert.NoError(t, cfg.Validate(), "page_size 0 means all")
}
