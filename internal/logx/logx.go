package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

const maxLines = 200

var (
	mu    sync.Mutex
	level = Warn
	buf   = make([]string, 0, maxLines)
)

var out io.Writer = os.Stderr

func SetLevel(l Level) { mu.Lock(); level = l; mu.Unlock() }

// SetOutput redirects log lines; nil discards them.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// SetLevelFromEnv reads TAXISIM_LOG_LEVEL (debug|info|warn|error).
func SetLevelFromEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TAXISIM_LOG_LEVEL"))) {
	case "debug":
		SetLevel(Debug)
	case "info":
		SetLevel(Info)
	case "warn", "warning":
		SetLevel(Warn)
	case "error":
		SetLevel(Error)
	}
}

func Debugf(format string, a ...any) { logf(Debug, "DEBUG", format, a...) }
func Infof(format string, a ...any)  { logf(Info, "INFO", format, a...) }
func Warnf(format string, a ...any)  { logf(Warn, "WARN", format, a...) }
func Errorf(format string, a ...any) { logf(Error, "ERROR", format, a...) }

// logf records every line in the ring and writes those at or above the level.
func logf(l Level, tag, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	line := fmt.Sprintf("%s %-5s %s", ts, tag, fmt.Sprintf(format, a...))
	if len(buf) >= maxLines {
		copy(buf[0:], buf[1:])
		buf = buf[:len(buf)-1]
	}
	buf = append(buf, line)
	if l >= level {
		fmt.Fprintln(out, line)
	}
}

// Lines returns the most recent log lines at every level, oldest first.
func Lines() []string {
	mu.Lock()
	defer mu.Unlock()
	cp := make([]string, len(buf))
	copy(cp, buf)
	return cp
}
