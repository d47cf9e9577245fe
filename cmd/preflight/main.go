// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamed0406/sitewatch/internal/config"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

func run(stdout, stderr io.Writer) int {
	fail := func(msg string) int {
		fmt.Fprintln(stderr, "✖", msg)
		return 1
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	cfg, err := config.Load()
	if err != nil {
		return fail(err.Error())
	}
	ok("API_ADDR=" + cfg.Addr)
	ok(fmt.Sprintf("PROBE_TIMEOUT_MS=%d", cfg.ProbeTimeout.Milliseconds()))
	ok(fmt.Sprintf("MAX_LOG_ENTRIES=%d", cfg.MaxLogEntries))

	if cfg.SkipTLSVerify {
		warn("SKIP_TLS_VERIFY=true: certificates of monitored sites will NOT be verified.")
	}

	switch cfg.StoreKind() {
	case "postgres":
		ok("DATABASE_URL present (postgres snapshot store)")
	case "sqlite":
		if err := writableDir(filepath.Dir(cfg.SQLitePath)); err != nil {
			return fail("SQLITE_PATH directory not writable: " + err.Error())
		}
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		if err := writableDir(filepath.Dir(cfg.DataFile)); err != nil {
			return fail("DATA_FILE directory not writable: " + err.Error())
		}
		ok("DATA_FILE=" + cfg.DataFile)
	}

	if err := writableDir(cfg.LogDir); err != nil {
		return fail("LOG_DIR not writable: " + err.Error())
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		warn("ALLOWED_ORIGINS is * : any site may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
	return 0
}

func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
