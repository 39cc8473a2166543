package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv(envConfigPath, "")
	for _, k := range []string{
		"WAMONITOR_MESSAGES_FILE", "WAMONITOR_CACHE_TTL", "WAMONITOR_TIMEZONE",
		"WAMONITOR_REFRESH_ENABLED", "WAMONITOR_REFRESH_INTERVAL",
		"WAMONITOR_RECENT_LIMIT", "WAMONITOR_TOP_SENDERS",
		"WAMONITOR_HOST", "WAMONITOR_PORT", "WAMONITOR_WATCH_FILE",
	} {
		t.Setenv(k, "")
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return tmpDir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MessagesFile != DefaultMessagesFile {
		t.Errorf("messagesFile = %q, want %q", cfg.MessagesFile, DefaultMessagesFile)
	}
	if cfg.TTL() != 5*time.Second {
		t.Errorf("ttl = %s, want 5s", cfg.TTL())
	}
	if !cfg.Refresh.Enabled || cfg.Refresh.IntervalSeconds != 10 {
		t.Errorf("refresh = %+v, want {true 10}", cfg.Refresh)
	}
	if cfg.Feed.RecentLimit != 20 || cfg.Feed.TopSenders != 10 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Addr() != "127.0.0.1:8501" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.WatchFile {
		t.Error("watchFile should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("location = %v, %v; want UTC", loc, err)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.MessagesFile != DefaultMessagesFile {
		t.Errorf("messagesFile = %q", cfg.MessagesFile)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := isolate(t)

	cfgDir := filepath.Join(tmpDir, ".wamonitor")
	os.MkdirAll(cfgDir, 0755)
	data, _ := json.MarshalIndent(map[string]any{
		"messagesFile": "/var/lib/wa/messages.json",
		"cacheTTL":     "2s",
		"timezone":     "America/Sao_Paulo",
		"refresh":      map[string]any{"enabled": false},
		"feed":         map[string]any{"recentLimit": 50},
	}, "", "  ")
	os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0644)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.MessagesFile != "/var/lib/wa/messages.json" {
		t.Errorf("messagesFile = %q", cfg.MessagesFile)
	}
	if cfg.TTL() != 2*time.Second {
		t.Errorf("ttl = %s, want 2s", cfg.TTL())
	}
	if cfg.Refresh.Enabled {
		t.Error("refresh should be disabled")
	}
	if cfg.Refresh.IntervalSeconds != 10 {
		t.Errorf("interval = %d, want default 10", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Feed.RecentLimit != 50 || cfg.Feed.TopSenders != 10 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location error: %v", err)
	}
	if loc.String() != "America/Sao_Paulo" {
		t.Errorf("location = %s", loc)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "wamonitor.yaml")
	os.WriteFile(path, []byte(`messagesFile: ./msgs.json
refresh:
  enabled: true
  intervalSeconds: 30
gateway:
  port: 9000
watchFile: true
`), 0644)
	t.Setenv(envConfigPath, path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.MessagesFile != "./msgs.json" {
		t.Errorf("messagesFile = %q", cfg.MessagesFile)
	}
	if cfg.Refresh.IntervalSeconds != 30 {
		t.Errorf("interval = %d, want 30", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Gateway.Port != 9000 || cfg.Gateway.Host != DefaultHost {
		t.Errorf("gateway = %+v", cfg.Gateway)
	}
	if !cfg.WatchFile {
		t.Error("watchFile should be true")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("WAMONITOR_MESSAGES_FILE", "/tmp/m.json")
	t.Setenv("WAMONITOR_REFRESH_INTERVAL", "45")
	t.Setenv("WAMONITOR_REFRESH_ENABLED", "false")
	t.Setenv("WAMONITOR_PORT", "9100")
	t.Setenv("WAMONITOR_WATCH_FILE", "true")
	t.Setenv("WAMONITOR_TOP_SENDERS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.MessagesFile != "/tmp/m.json" {
		t.Errorf("messagesFile = %q", cfg.MessagesFile)
	}
	if cfg.Refresh.IntervalSeconds != 45 || cfg.Refresh.Enabled {
		t.Errorf("refresh = %+v, want {false 45}", cfg.Refresh)
	}
	if cfg.Gateway.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Gateway.Port)
	}
	if !cfg.WatchFile {
		t.Error("watchFile should be true")
	}
	if cfg.Feed.TopSenders != 5 {
		t.Errorf("topSenders = %d, want 5", cfg.Feed.TopSenders)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	tmpDir := isolate(t)
	os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("WAMONITOR_CACHE_TTL=1500ms\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("WAMONITOR_CACHE_TTL") })
	os.Unsetenv("WAMONITOR_CACHE_TTL")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.TTL() != 1500*time.Millisecond {
		t.Errorf("ttl = %s, want 1.5s", cfg.TTL())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{"interval too short", "WAMONITOR_REFRESH_INTERVAL", "2", "IntervalSeconds"},
		{"interval too long", "WAMONITOR_REFRESH_INTERVAL", "120", "IntervalSeconds"},
		{"bad ttl", "WAMONITOR_CACHE_TTL", "soon", "CacheTTL"},
		{"bad timezone", "WAMONITOR_TIMEZONE", "Mars/Olympus", "Timezone"},
		{"bad port", "WAMONITOR_PORT", "70000", "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	tmpDir := isolate(t)
	cfgDir := filepath.Join(tmpDir, ".wamonitor")
	os.MkdirAll(cfgDir, 0755)
	os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{not json"), 0644)

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("error = %v, want parse config error", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.MessagesFile = "/srv/messages.json"
	cfg.Refresh.IntervalSeconds = 20
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}
	if _, err := os.Stat(ConfigPath()); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.MessagesFile != "/srv/messages.json" || loaded.Refresh.IntervalSeconds != 20 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveConfig_YAML(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "conf", "wamonitor.yml")
	t.Setenv(envConfigPath, path)

	if err := SaveConfig(DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "messagesFile: data/messages.json") {
		t.Errorf("yaml output = %s", data)
	}
}
