// Package config resolves rollcall settings from defaults, an HCL file and
// ROLLCALL_* environment variables. Command-line flags are applied on top
// by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"

	"github.com/agentic-research/rollcall/internal/directory"
)

const envPrefix = "ROLLCALL_"

type Config struct {
	BaseURL        string
	RosterPath     string
	TreePath       string
	EmailDomain    string
	PhotoURL       string
	PageSize       int
	QueryCacheSize int
	HTTP           HTTP
}

type HTTP struct {
	Listen       string
	FetchTimeout string
}

// file mirrors Config for HCL decoding. Absent attributes stay zero and do
// not override defaults.
type file struct {
	BaseURL        string    `hcl:"base_url,optional"`
	RosterPath     string    `hcl:"roster_path,optional"`
	TreePath       string    `hcl:"tree_path,optional"`
	EmailDomain    string    `hcl:"email_domain,optional"`
	PhotoURL       string    `hcl:"photo_url,optional"`
	PageSize       int       `hcl:"page_size,optional"`
	QueryCacheSize int       `hcl:"query_cache_size,optional"`
	HTTP           *httpFile `hcl:"http,block"`
}

type httpFile struct {
	Listen       string `hcl:"listen,optional"`
	FetchTimeout string `hcl:"fetch_timeout,optional"`
}

// Default returns the built-in settings. BaseURL has no default.
func Default() *Config {
	return &Config{
		RosterPath:     "students.json",
		TreePath:       "familytree.json",
		EmailDomain:    directory.DefaultEmailDomain,
		PhotoURL:       directory.DefaultPhotoURL,
		PageSize:       50,
		QueryCacheSize: 256,
		HTTP: HTTP{
			Listen:       ":8080",
			FetchTimeout: "15s",
		},
	}
}

// Load resolves the configuration. path may be empty. envFiles are read
// into the environment first; with none given, a .env in the working
// directory is read if present. Variables already set win over the files.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load() // missing .env is fine
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := Default()
	if path != "" {
		var f file
		if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		cfg.apply(f)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(f file) {
	setString(&c.BaseURL, f.BaseURL)
	setString(&c.RosterPath, f.RosterPath)
	setString(&c.TreePath, f.TreePath)
	setString(&c.EmailDomain, f.EmailDomain)
	setString(&c.PhotoURL, f.PhotoURL)
	if f.PageSize != 0 {
		c.PageSize = f.PageSize
	}
	if f.QueryCacheSize != 0 {
		c.QueryCacheSize = f.QueryCacheSize
	}
	if f.HTTP != nil {
		setString(&c.HTTP.Listen, f.HTTP.Listen)
		setString(&c.HTTP.FetchTimeout, f.HTTP.FetchTimeout)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	strs := map[string]*string{
		"BASE_URL":      &c.BaseURL,
		"ROSTER_PATH":   &c.RosterPath,
		"TREE_PATH":     &c.TreePath,
		"EMAIL_DOMAIN":  &c.EmailDomain,
		"PHOTO_URL":     &c.PhotoURL,
		"LISTEN":        &c.HTTP.Listen,
		"FETCH_TIMEOUT": &c.HTTP.FetchTimeout,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	ints := map[string]*int{
		"PAGE_SIZE":        &c.PageSize,
		"QUERY_CACHE_SIZE": &c.QueryCacheSize,
	}
	for name, dst := range ints {
		v, ok := get(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if strings.Contains(c.BaseURL, "://") {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("base_url: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
			errs = append(errs, fmt.Errorf("base_url: unsupported scheme %q", u.Scheme))
		}
	}
	if c.RosterPath == "" {
		errs = append(errs, errors.New("roster_path is required"))
	}
	if c.TreePath == "" {
		errs = append(errs, errors.New("tree_path is required"))
	}
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page_size must not be negative, got %d", c.PageSize))
	}
	if c.QueryCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("query_cache_size must be positive, got %d", c.QueryCacheSize))
	}
	if _, err := c.FetchTimeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FetchTimeout parses HTTP.FetchTimeout. Zero disables the timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.HTTP.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HTTP.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("http.fetch_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("http.fetch_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// MergeOptions returns the entity derivation settings.
func (c *Config) MergeOptions() directory.MergeOptions {
	return directory.MergeOptions{EmailDomain: c.EmailDomain, PhotoURL: c.PhotoURL}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
