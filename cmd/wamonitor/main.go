package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	_ "time/tzdata"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/wamonitor/internal/config"
	"github.com/stellarlinkco/wamonitor/internal/dashboard"
	"github.com/stellarlinkco/wamonitor/internal/export"
	"github.com/stellarlinkco/wamonitor/internal/gateway"
	"github.com/stellarlinkco/wamonitor/internal/refresh"
)

const clearScreen = "\033[H\033[2J"

var rootCmd = &cobra.Command{
	Use:          "wamonitor",
	Short:        "wamonitor - dashboard for captured WhatsApp messages",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web dashboard with live refresh",
	RunE:  runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the dashboard in the terminal, redrawn every interval",
	RunE:  runWatch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard once",
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dashboard to an .xlsx spreadsheet",
	RunE:  runExport,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wamonitor status",
	RunE:  runStatus,
}

var (
	fileFlag     string
	portFlag     int
	intervalFlag int
	onceFlag     bool
	jsonFlag     bool
	outputFlag   string
)

// signalChan is replaced in tests.
var signalChan = func() (chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", "", "messages.json to read (overrides config)")
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "HTTP port (overrides config)")
	watchCmd.Flags().IntVarP(&intervalFlag, "interval", "i", 0, "refresh interval in seconds (5-60)")
	watchCmd.Flags().BoolVar(&onceFlag, "once", false, "render once and exit")
	statsCmd.Flags().BoolVar(&jsonFlag, "json", false, "print the snapshot as JSON")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "output file (default wamonitor-<time>.xlsx)")
	rootCmd.AddCommand(serveCmd, watchCmd, statsCmd, exportCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if fileFlag != "" {
		cfg.MessagesFile = fileFlag
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if portFlag != 0 {
		cfg.Gateway.Port = portFlag
	}

	sigCh, stop := signalChan()
	defer stop()

	gw, err := gateway.NewWithOptions(cfg, gateway.Options{SignalChan: sigCh})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(commandContext(cmd))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings := refresh.Settings{Enabled: true, IntervalSeconds: cfg.Refresh.IntervalSeconds}
	if intervalFlag != 0 {
		settings.IntervalSeconds = intervalFlag
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	svc, _, err := gateway.NewDashboard(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	if onceFlag {
		return dashboard.Render(out, svc.Snapshot(ctx))
	}

	draw := func() {
		fmt.Fprint(out, clearScreen)
		if err := dashboard.Render(out, svc.Snapshot(ctx)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "render: %v\n", err)
		}
	}
	draw()

	sched := refresh.NewScheduler(settings)
	sched.OnTick = draw
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	sigCh, stop := signalChan()
	defer stop()
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := gateway.NewDashboard(cfg)
	if err != nil {
		return err
	}

	snap := svc.Snapshot(commandContext(cmd))
	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return dashboard.Render(out, snap)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := gateway.NewDashboard(cfg)
	if err != nil {
		return err
	}

	snap := svc.Snapshot(commandContext(cmd))
	path := outputFlag
	if path == "" {
		path = fmt.Sprintf("wamonitor-%s.xlsx", snap.GeneratedAt.Format("20060102-150405"))
	}
	if err := export.WriteFile(path, snap); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s messages to %s\n", humanize.Comma(int64(snap.Summary.Total)), path)
	if snap.Error != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", snap.Error)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	writeIfNotExists(out, filepath.Join(config.ConfigDir(), ".env"), defaultDotEnv)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Point messagesFile in %s at the file your WhatsApp client writes\n", cfgPath)
	fmt.Fprintf(out, "     (currently %s)\n", cfg.MessagesFile)
	fmt.Fprintln(out, "  2. Run 'wamonitor stats' to check it loads")
	fmt.Fprintln(out, "  3. Run 'wamonitor serve' and open the dashboard")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	fmt.Fprintf(out, "Messages file: %s\n", cfg.MessagesFile)

	info, err := os.Stat(cfg.MessagesFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(out, "File: not found (waiting for the WhatsApp client)")
	case err != nil:
		fmt.Fprintf(out, "File: error (%v)\n", err)
	default:
		fmt.Fprintf(out, "File: %s, modified %s\n", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
		svc, _, err := gateway.NewDashboard(cfg)
		if err != nil {
			return err
		}
		snap := svc.Snapshot(commandContext(cmd))
		if snap.Error != "" {
			fmt.Fprintf(out, "Messages: %s\n", snap.Error)
		} else {
			fmt.Fprintf(out, "Messages: %s (%s senders)\n",
				humanize.Comma(int64(snap.Summary.Total)), humanize.Comma(int64(snap.Summary.UniqueSenders)))
		}
	}

	fmt.Fprintf(out, "Cache TTL: %s\n", cfg.TTL())
	fmt.Fprintf(out, "Timezone: %s\n", cfg.Timezone)
	fmt.Fprintf(out, "Auto refresh: enabled=%v, every %ds\n", cfg.Refresh.Enabled, cfg.Refresh.IntervalSeconds)
	fmt.Fprintf(out, "Dashboard: http://%s\n", cfg.Addr())
	fmt.Fprintf(out, "Watch file: %v\n", cfg.WatchFile)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeIfNotExists(out io.Writer, path, content string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(out, "  Skipped %s: %v\n", path, err)
			return
		}
		fmt.Fprintf(out, "  Created: %s\n", path)
	}
}

const defaultDotEnv = `# Overrides for wamonitor; real environment variables win.
# WAMONITOR_MESSAGES_FILE=data/messages.json
# WAMONITOR_CACHE_TTL=5s
# WAMONITOR_TIMEZONE=America/Sao_Paulo
# WAMONITOR_REFRESH_ENABLED=true
# WAMONITOR_REFRESH_INTERVAL=10
# WAMONITOR_RECENT_LIMIT=20
# WAMONITOR_TOP_SENDERS=10
# WAMONITOR_HOST=127.0.0.1
# WAMONITOR_PORT=8501
# WAMONITOR_WATCH_FILE=false
`
