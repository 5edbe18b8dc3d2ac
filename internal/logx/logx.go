package logx

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if f == nil || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ResolveColor maps a logging.color setting (auto|always|never) to a bool.
func ResolveColor(mode string, f *os.File) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "never":
		return false
	default:
		return ColorEnabled(f)
	}
}

func ColorizeStatusWith(status int, color bool) string {
	if !color {
		return strconv.Itoa(status)
	}
	// ANSI colors
	const (
		reset  = "\x1b[0m"
		red    = "\x1b[31m"
		green  = "\x1b[32m"
		yellow = "\x1b[33m"
		cyan   = "\x1b[36m"
	)
	switch {
	case status >= 200 && status < 300:
		return green + strconv.Itoa(status) + reset
	case status >= 300 && status < 400:
		return cyan + strconv.Itoa(status) + reset
	case status >= 400 && status < 500:
		return yellow + strconv.Itoa(status) + reset
	default:
		return red + strconv.Itoa(status) + reset
	}
}

// FormatFetchLine prints a single line fetch log.
//
// Example:
// [FR] 2026/01/26 - 17:44:22 | 200 | 12.3ms | GET "https://api.example.com/v1/items" | apply=json rule=fallback
func FormatFetchLine(
	ts time.Time,
	status int,
	latency time.Duration,
	method string,
	url string,
	fields map[string]any,
	color bool,
) string {
	base := fmt.Sprintf(
		`[FR] %s | %s | %s | %s %q`,
		ts.Format("2006/01/02 - 15:04:05"),
		ColorizeStatusWith(status, color),
		latency.String(),
		strings.TrimSpace(method),
		url,
	)
	extra := formatFields(fields)
	if extra == "" {
		return base
	}
	return base + " | " + extra
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
			if strings.ContainsAny(t, " \t\"") {
				t = strconv.Quote(t)
			}
			parts = append(parts, fmt.Sprintf("%s=%s", k, t))
		case float64:
			s := strings.TrimSpace(strconv.FormatFloat(t, 'f', 12, 64))
			s = strings.TrimRight(s, "0")
			s = strings.TrimRight(s, ".")
			if s == "" || s == "-" {
				s = "0"
			}
			parts = append(parts, fmt.Sprintf("%s=%s", k, s))
		case error:
			parts = append(parts, fmt.Sprintf("%s=%q", k, t.Error()))
		default:
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s == "" || s == "<nil>" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%s", k, s))
		}
	}
	return strings.Join(parts, " ")
}

// Level orders log verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
	LevelSilent
)

// ParseLevel accepts debug, info, error and silent. Empty means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	case "silent", "off":
		return LevelSilent, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger writes leveled lines; the zero value discards everything.
type Logger struct {
	W     io.Writer
	Level Level
	Color bool
}

func (l *Logger) enabled(lv Level) bool {
	return l != nil && l.W != nil && l.Level != LevelSilent && lv >= l.Level
}

func (l *Logger) Debugf(format string, args ...any) { l.printf(LevelDebug, format, args...) }

func (l *Logger) Infof(format string, args ...any) { l.printf(LevelInfo, format, args...) }

func (l *Logger) Errorf(format string, args ...any) { l.printf(LevelError, format, args...) }

// Fetch logs one fetch line at info level, or at error level when err is set.
func (l *Logger) Fetch(status int, latency time.Duration, method, url string, fields map[string]any, err error) {
	lv := LevelInfo
	if err != nil {
		lv = LevelError
		withErr := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			withErr[k] = v
		}
		withErr["error"] = err
		fields = withErr
	}
	if !l.enabled(lv) {
		return
	}
	_, _ = fmt.Fprintln(l.W, FormatFetchLine(time.Now(), status, latency, method, url, fields, l.Color))
}

func (l *Logger) printf(lv Level, format string, args ...any) {
	if !l.enabled(lv) {
		return
	}
	_, _ = fmt.Fprintf(l.W, "[FR] "+strings.TrimRight(format, "\n")+"\n", args...)
}
