// Package logging provides named, env-gated loggers for each major
// subsystem. Grounded on lumipallolabs-diskdive/internal/logging: same
// "no-op unless DEBUG env var is set" gating and shared log file, extended
// with one logger per subsystem (Scan, Query, GC) instead of a single
// Scanner logger, since disk-tree has more moving parts than a TUI.
package logging

import (
	"io"
	"log"
	"os"
)

var (
	Debug   *log.Logger
	Scan    *log.Logger
	Query   *log.Logger
	GC      *log.Logger
	Enabled bool
)

func init() {
	if os.Getenv("DISK_TREE_DEBUG") == "" {
		Debug = log.New(io.Discard, "", 0)
		Scan = log.New(io.Discard, "", 0)
		Query = log.New(io.Discard, "", 0)
		GC = log.New(io.Discard, "", 0)
		return
	}

	Enabled = true

	out := io.Writer(os.Stderr)
	if f, err := os.OpenFile("disk-tree-debug.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		out = f
	}

	Debug = log.New(out, "[debug] ", log.Ldate|log.Ltime|log.Lmicroseconds)
	Scan = log.New(out, "[scan] ", log.Ldate|log.Ltime|log.Lmicroseconds)
	Query = log.New(out, "[query] ", log.Ldate|log.Ltime|log.Lmicroseconds)
	GC = log.New(out, "[gc] ", log.Ldate|log.Ltime|log.Lmicroseconds)
}
