package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	root := t.TempDir()
	return Paths{
		UserDir:   filepath.Join(root, "user", "hyprdock"),
		SystemDir: filepath.Join(root, "system"),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_CreatesDefaults(t *testing.T) {
	paths := testPaths(t)

	m, err := Open("", paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := filepath.Join(paths.UserDir, FileName)
	if m.GetConfigPath() != want {
		t.Fatalf("config path = %q, want %q", m.GetConfigPath(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	cfg := m.Get()
	if cfg.IconSize != DefaultIconSize || cfg.PollIntervalMS != DefaultPollIntervalMS || cfg.API.Port != DefaultPort {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.PinnedApps) != 0 {
		t.Fatalf("pinned = %v, want none", cfg.PinnedApps)
	}
}

func TestOpen_UserBeatsSystem(t *testing.T) {
	paths := testPaths(t)
	writeFile(t, filepath.Join(paths.SystemDir, FileName), "pinned_apps: [system.desktop]\n")
	writeFile(t, filepath.Join(paths.UserDir, FileName), "pinned_apps: [user.desktop]\n")

	m, err := Open("", paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := m.Get().PinnedApps; !reflect.DeepEqual(got, []string{"user.desktop"}) {
		t.Fatalf("pinned = %v, want [user.desktop]", got)
	}
}

func TestOpen_FallsBackToSystem(t *testing.T) {
	paths := testPaths(t)
	systemFile := filepath.Join(paths.SystemDir, FileName)
	writeFile(t, systemFile, "pinned_apps: [firefox.desktop]\nicon_size: 48\n")

	m, err := Open("", paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m.GetConfigPath() != systemFile {
		t.Fatalf("config path = %q, want %q", m.GetConfigPath(), systemFile)
	}
	if cfg := m.Get(); cfg.IconSize != 48 || len(cfg.PinnedApps) != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}

	// Saving never writes into the system directory.
	if err := m.AddPinnedApp("kitty.desktop"); err != nil {
		t.Fatalf("AddPinnedApp: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.UserDir, FileName)); err != nil {
		t.Fatalf("user config not written: %v", err)
	}
	data, _ := os.ReadFile(systemFile)
	if string(data) != "pinned_apps: [firefox.desktop]\nicon_size: 48\n" {
		t.Fatalf("system config modified: %q", data)
	}
}

func TestOpen_MigratesLegacyINI(t *testing.T) {
	paths := testPaths(t)
	writeFile(t, filepath.Join(paths.UserDir, LegacyFileName), `[dock]
icon_size=40

[pinned]
apps= firefox.desktop , ,org.wezfurlong.wezterm.desktop,
`)

	m, err := Open("", paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cfg := m.Get()
	if cfg.IconSize != 40 {
		t.Fatalf("icon size = %d, want 40", cfg.IconSize)
	}
	want := []string{"firefox.desktop", "org.wezfurlong.wezterm.desktop"}
	if !reflect.DeepEqual(cfg.PinnedApps, want) {
		t.Fatalf("pinned = %v, want %v", cfg.PinnedApps, want)
	}
	if _, err := os.Stat(filepath.Join(paths.UserDir, FileName)); err != nil {
		t.Fatalf("migrated config not written: %v", err)
	}
}

func TestParse_Normalizes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want func(*Config) bool
	}{
		{
			name: "icon size zero uses default",
			yaml: "icon_size: 0\n",
			want: func(c *Config) bool { return c.IconSize == DefaultIconSize },
		},
		{
			name: "icon size above limit uses default",
			yaml: "icon_size: 512\nsearcher_icon_size: 300\n",
			want: func(c *Config) bool {
				return c.IconSize == DefaultIconSize && c.SearcherIconSize == DefaultSearcherIconSize
			},
		},
		{
			name: "icon size at limit kept",
			yaml: "icon_size: 256\n",
			want: func(c *Config) bool { return c.IconSize == 256 },
		},
		{
			name: "pinned ids trimmed and deduplicated",
			yaml: "pinned_apps: ['  a.desktop ', '', b.desktop, a.desktop]\n",
			want: func(c *Config) bool { return reflect.DeepEqual(c.PinnedApps, []string{"a.desktop", "b.desktop"}) },
		},
		{
			name: "negative poll interval uses default",
			yaml: "poll_interval_ms: -5\n",
			want: func(c *Config) bool { return c.PollIntervalMS == DefaultPollIntervalMS },
		},
		{
			name: "api fields kept",
			yaml: "api:\n  enabled: false\n  port: 9000\n",
			want: func(c *Config) bool { return !c.API.Enabled && c.API.Port == 9000 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !tt.want(cfg) {
				t.Fatalf("unexpected config: %+v", cfg)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("pinned_apps: {")); err == nil {
		t.Fatal("Parse accepted malformed YAML")
	}
}

func TestManager_PinnedApps(t *testing.T) {
	m, err := Open("", testPaths(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, id := range []string{"firefox.desktop", " kitty.desktop ", "firefox.desktop"} {
		if err := m.AddPinnedApp(id); err != nil {
			t.Fatalf("AddPinnedApp(%q): %v", id, err)
		}
	}
	if err := m.AddPinnedApp("   "); err == nil {
		t.Fatal("AddPinnedApp accepted a blank id")
	}
	if got := m.Get().PinnedApps; !reflect.DeepEqual(got, []string{"firefox.desktop", "kitty.desktop"}) {
		t.Fatalf("pinned = %v", got)
	}

	removed, err := m.RemovePinnedApp("firefox.desktop")
	if err != nil || !removed {
		t.Fatalf("RemovePinnedApp = %v, %v", removed, err)
	}
	removed, err = m.RemovePinnedApp("missing.desktop")
	if err != nil || removed {
		t.Fatalf("RemovePinnedApp(missing) = %v, %v", removed, err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := m.Get().PinnedApps; !reflect.DeepEqual(got, []string{"kitty.desktop"}) {
		t.Fatalf("pinned after reload = %v", got)
	}
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m, err := Open("", testPaths(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.AddPinnedApp("a.desktop"); err != nil {
		t.Fatal(err)
	}

	cfg := m.Get()
	cfg.PinnedApps[0] = "mutated"
	cfg.IconSize = 1

	if got := m.Get(); got.PinnedApps[0] != "a.desktop" || got.IconSize != DefaultIconSize {
		t.Fatalf("Get exposed internal state: %+v", got)
	}
}

func TestManager_ReloadKeepsPreviousOnError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, file, "pinned_apps: [a.desktop]\n")

	m, err := Open(file, testPaths(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	writeFile(t, file, "pinned_apps: [\n")
	if err := m.Reload(); err == nil {
		t.Fatal("Reload accepted malformed YAML")
	}
	if got := m.Get().PinnedApps; !reflect.DeepEqual(got, []string{"a.desktop"}) {
		t.Fatalf("pinned = %v, want previous config", got)
	}
}

func TestManager_Set(t *testing.T) {
	m, err := Open("", testPaths(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := m.Set("icon_size", "48"); err != nil {
		t.Fatalf("Set icon_size: %v", err)
	}
	if err := m.Set("api.port", 9100); err != nil {
		t.Fatalf("Set api.port: %v", err)
	}
	if err := m.Set("no_such_key", "x"); err == nil {
		t.Fatal("Set accepted an unknown key")
	}

	cfg := m.Get()
	if cfg.IconSize != 48 || cfg.API.Port != 9100 {
		t.Fatalf("cfg = %+v", cfg)
	}

	v, err := m.Viper()
	if err != nil {
		t.Fatalf("Viper: %v", err)
	}
	if v.GetInt("api.port") != 9100 {
		t.Fatalf("viper api.port = %v", v.Get("api.port"))
	}
}

func TestManager_StylePath(t *testing.T) {
	paths := testPaths(t)
	m, err := Open("", paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got, want := m.StylePath(), filepath.Join(paths.UserDir, StyleFileName); got != want {
		t.Fatalf("StylePath = %q, want %q", got, want)
	}

	if err := m.Set("style_path", "/tmp/dock.css"); err != nil {
		t.Fatalf("Set style_path: %v", err)
	}
	if got := m.StylePath(); got != "/tmp/dock.css" {
		t.Fatalf("StylePath = %q, want /tmp/dock.css", got)
	}
}
