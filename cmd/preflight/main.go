// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hamed0406/pingmonitor/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.FromEnv()
	if err != nil {
		fail(err.Error())
	}
	ok("config valid, listening on " + cfg.Addr())

	if path, err := exec.LookPath(cfg.PingBinary); err != nil {
		fail(fmt.Sprintf("ping binary %q not found: %v", cfg.PingBinary, err))
	} else {
		ok("ping binary " + path)
	}

	if cfg.DatabaseURL != "" {
		ok("DATABASE_URL present, results go to Postgres")
	} else {
		dir := filepath.Dir(cfg.DBPath)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			fail("DB_PATH directory " + dir + " does not exist")
		}
		ok("DB_PATH=" + cfg.DBPath)
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fail("LOG_DIR not writable: " + err.Error())
	}
	probe := filepath.Join(cfg.LogDir, ".preflight")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		fail("LOG_DIR not writable: " + err.Error())
	}
	_ = os.Remove(probe)
	ok("LOG_DIR=" + cfg.LogDir)

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty, any origin may call the API and open /ws.")
	} else {
		ok(fmt.Sprintf("ALLOWED_ORIGINS=%v", cfg.AllowedOrigins))
	}
	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK_URL empty, session summaries will not be posted.")
	}
	if cfg.StopWhenUnwatched {
		ok("sessions stop when their last viewer disconnects")
	}

	ok("preflight passed")
}
