// Package logger provides a leveled, component-tagged logger used across
// the gateway. Components are short subsystem names ("relay", "telegram",
// "pairing") so log lines can be filtered per concern.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

var (
	mu    sync.Mutex
	level           = INFO
	out   io.Writer = os.Stderr
	file  *os.File
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLogFile additionally mirrors log output to the given file path.
func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
	return nil
}

func logf(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(l.String())
	b.WriteString("] [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteByte('\n')

	line := b.String()
	io.WriteString(out, line)
	if file != nil {
		io.WriteString(file, line)
	}
}

func DebugC(component, msg string) { logf(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { logf(INFO, component, msg, nil) }
func WarnC(component, msg string)  { logf(WARN, component, msg, nil) }
func ErrorC(component, msg string) { logf(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logf(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { logf(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { logf(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { logf(ERROR, component, msg, fields) }
