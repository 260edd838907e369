package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/rollcall/internal/graph"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/nfsmount"
)

var mountFlags struct {
	refresh time.Duration
	nfsAddr string
	noMount bool
}

func init() {
	f := mountCmd.Flags()
	f.DurationVar(&mountFlags.refresh, "refresh", 0, "Reload the dataset at this interval (0 disables)")
	f.StringVar(&mountFlags.nfsAddr, "nfs-addr", "", "NFS listen address (default 127.0.0.1 on a random port)")
	f.BoolVar(&mountFlags.noMount, "no-mount", false, "Only run the NFS server; do not call mount")
	rootCmd.AddCommand(mountCmd)
}

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount the directory as a read-only filesystem over NFS",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !mountFlags.noMount && len(args) == 0 {
			return fmt.Errorf("mountpoint required unless --no-mount is set")
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		v, err := newView(ctx, a.loader)
		if err != nil {
			return err
		}

		srv, err := nfsmount.NewServer(nfsmount.NewGraphFS(v.graph, v.summary), mountFlags.nfsAddr)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }() // safe to ignore
		a.log.Info("nfs server listening", "port", srv.Port())

		if !mountFlags.noMount {
			mountpoint := args[0]
			if err := os.MkdirAll(mountpoint, 0o755); err != nil {
				return fmt.Errorf("create mountpoint: %w", err)
			}
			if err := nfsmount.Mount(srv.Port(), mountpoint); err != nil {
				return err
			}
			a.log.Info("mounted", "path", mountpoint)
			defer func() {
				if err := nfsmount.Unmount(mountpoint); err != nil {
					a.log.Warn("unmount failed", "path", mountpoint, "error", err)
				}
			}()
		}

		if mountFlags.refresh > 0 {
			go v.refreshEvery(ctx, mountFlags.refresh, a.loader, a.log.Warn)
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-srv.Done():
			if err != nil {
				return fmt.Errorf("nfs server: %w", err)
			}
			return nil
		}
	},
}

// view is the mounted projection of the current dataset.
type view struct {
	graph   *graph.HotSwapGraph
	current atomic.Pointer[loader.Dataset]
}

func newView(ctx context.Context, l *loader.Loader) (*view, error) {
	d, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	g, err := graph.Project(d)
	if err != nil {
		return nil, err
	}
	v := &view{graph: graph.NewHotSwapGraph(g)}
	v.current.Store(d)
	return v, nil
}

func (v *view) summary() []byte {
	return graph.Summarize(v.current.Load())
}

// refresh reloads the dataset and swaps the projection. On failure the
// previous projection stays mounted.
func (v *view) refresh(ctx context.Context, l *loader.Loader) error {
	d, err := l.Reload(ctx)
	if err != nil {
		return err
	}
	g, err := graph.Project(d)
	if err != nil {
		return err
	}
	v.graph.Swap(g)
	v.current.Store(d)
	return nil
}

func (v *view) refreshEvery(ctx context.Context, every time.Duration, l *loader.Loader, warn func(string, ...any)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := v.refresh(ctx, l); err != nil {
				warn("refresh failed, keeping previous dataset", "error", err)
			}
		}
	}
}
