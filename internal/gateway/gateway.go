package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stellarlinkco/wamonitor/internal/config"
	"github.com/stellarlinkco/wamonitor/internal/dashboard"
	"github.com/stellarlinkco/wamonitor/internal/loader"
	"github.com/stellarlinkco/wamonitor/internal/refresh"
	"github.com/stellarlinkco/wamonitor/internal/stats"
	"github.com/stellarlinkco/wamonitor/internal/webui"
)

// Options for creating a Gateway
type Options struct {
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	loader     *loader.Loader
	dash       *dashboard.Service
	sched      *refresh.Scheduler
	web        *webui.Server
	signalChan chan os.Signal // for testing
}

// NewDashboard builds the loader and snapshot service described by cfg.
func NewDashboard(cfg *config.Config) (*dashboard.Service, *loader.Loader, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	l := loader.New(cfg.MessagesFile, loader.WithTTL(cfg.TTL()), loader.WithLocation(loc))
	svc := dashboard.NewService(l, stats.Options{
		TopSenders:  cfg.Feed.TopSenders,
		RecentLimit: cfg.Feed.RecentLimit,
	})
	return svc, l, nil
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg, signalChan: opts.SignalChan}

	dash, l, err := NewDashboard(cfg)
	if err != nil {
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	g.dash = dash
	g.loader = l

	g.sched = refresh.NewScheduler(cfg.Refresh)
	g.sched.OnTick = func() {
		g.web.Broadcast(g.dash.Snapshot(context.Background()))
	}

	web, err := webui.New(cfg.Addr(), g.dash, g.sched)
	if err != nil {
		return nil, fmt.Errorf("create webui: %w", err)
	}
	g.web = web

	return g, nil
}

// Addr returns the web UI's bound address.
func (g *Gateway) Addr() string {
	return g.web.Addr()
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if g.cfg.WatchFile {
		err := g.loader.Watch(ctx, func() {
			g.web.Broadcast(g.dash.Snapshot(ctx))
		})
		if err != nil {
			log.Printf("[gateway] file watch warning: %v", err)
		}
	}
	if err := g.web.Start(ctx); err != nil {
		return fmt.Errorf("start webui: %w", err)
	}
	if err := g.sched.Start(ctx); err != nil {
		_ = g.web.Stop()
		return fmt.Errorf("start refresh: %w", err)
	}

	log.Printf("[gateway] monitoring %s on http://%s", g.cfg.MessagesFile, g.web.Addr())

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) Shutdown() error {
	g.sched.Stop()
	if err := g.web.Stop(); err != nil {
		log.Printf("[gateway] stop webui warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}
