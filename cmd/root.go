package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/config"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/metrics"
)

// version is set at build time with -ldflags "-X".
var version = "dev"

var (
	configPath string
	baseURL    string
	rosterPath string
	treePath   string
	verbose    bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to an HCL config file")
	pf.StringVarP(&baseURL, "base-url", "b", "", "Base URL or directory holding the roster and tree (env ROLLCALL_BASE_URL)")
	pf.StringVar(&rosterPath, "roster", "", "Roster path relative to the base (default students.json)")
	pf.StringVar(&treePath, "tree", "", "Relationship tree path relative to the base (default familytree.json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

var rootCmd = &cobra.Command{
	Use:           "rollcall",
	Short:         "Rollcall: a searchable student directory with its relationship tree",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is everything a command needs, wired from the resolved config.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	loader   *loader.Loader
	catalog  *catalog.Service
}

// newApp resolves configuration (defaults < file < env < flags) and wires
// the loader and catalog.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("roster") {
		cfg.RosterPath = rosterPath
	}
	if flags.Changed("tree") {
		cfg.TreePath = treePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	timeout, _ := cfg.FetchTimeout() // checked by Validate

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	src := loader.NewSource(cfg.BaseURL,
		loader.Paths{Roster: cfg.RosterPath, Tree: cfg.TreePath},
		&http.Client{Timeout: timeout})
	l := loader.New(src,
		loader.WithLogger(logger),
		loader.WithMetrics(m),
		loader.WithMergeOptions(cfg.MergeOptions()))

	svc, err := catalog.New(l, cfg.QueryCacheSize,
		catalog.WithLogger(logger),
		catalog.WithMetrics(m),
		catalog.WithPageSize(cfg.PageSize))
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration resolved",
		"base_url", cfg.BaseURL,
		"roster_path", cfg.RosterPath,
		"tree_path", cfg.TreePath)

	return &app{
		cfg:      cfg,
		log:      logger,
		registry: reg,
		metrics:  m,
		loader:   l,
		catalog:  svc,
	}, nil
}

// preload starts loading in the background. Failures are logged; the next
// request retries.
func (a *app) preload(ctx context.Context) {
	go func() {
		if _, err := a.loader.Get(ctx); err != nil {
			a.log.Warn("preload failed, will retry on first request", "error", err)
		}
	}()
}
