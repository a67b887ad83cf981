package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"libwatch/internal/config"
	"libwatch/internal/sizes"
	"libwatch/internal/snapshot"
)

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
overlay_dir = %q
collections_dir = %q

[plex]
url = "http://plex.test:32400"
token = "test-token"
movie_libraries = ["Movies"]
tv_libraries = ["TV Shows"]

[trakt]
client_id = "test-client-id"
access_token = "test-access-token"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "overlays"),
		filepath.Join(base, "collections"),
	)

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return path, cfg
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output %q missing %q", output, want)
	}
}

func TestConfigInitCreatesSample(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigValidate(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "<redacted>")
	requireContains(t, out, "plex.test")
	if strings.Contains(out, "test-token") {
		t.Fatalf("plex token leaked in output: %q", out)
	}
}

func TestSnapshotCommandReportsMissing(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "snapshot", "sizes")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, "No snapshot recorded for sizes")
}

func TestSnapshotCommandListsItems(t *testing.T) {
	configPath, cfg := writeTestConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	store := snapshot.NewStore(cfg.SnapshotPath(sizes.Domain), nil)
	snap := snapshot.Snapshot{
		"Movies/Alpha": {Value: 24.5, Count: 0},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	out, _, err := runCLI(t, configPath, "snapshot", "sizes")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, "Movies/Alpha")
	requireContains(t, out, "24.50")
	requireContains(t, out, "1 items")
}

func TestHistoryCommandEmpty(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestRunRejectsUnknownDomain(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, _, err := runCLI(t, configPath, "run", "bogus")
	if err == nil {
		t.Fatal("expected error for unknown watcher")
	}
}
