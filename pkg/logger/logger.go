package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
	OFF
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF"}

func (l LogLevel) String() string {
	if l < DEBUG || l > OFF {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a level name to a LogLevel, ignoring case.
func ParseLevel(name string) (LogLevel, error) {
	switch n := strings.ToUpper(strings.TrimSpace(name)); n {
	case "WARNING":
		return WARN, nil
	case "NONE":
		return OFF, nil
	default:
		for i, s := range levelNames {
			if s == n {
				return LogLevel(i), nil
			}
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorMagenta = "\033[35m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorGray    = "\033[90m"
)

var levelColors = [...]string{colorGray, colorBlue, colorYellow, colorRed, colorMagenta, ""}

// sink is the state shared by a logger and the children made with Named.
type sink struct {
	mu         sync.Mutex
	out        io.Writer
	level      LogLevel
	colorize   bool
	showCaller bool
	showTime   bool
	timeFormat string
}

type Logger struct {
	s      *sink
	prefix string
	name   string
}

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

// DefaultConfig logs INFO and up to stdout, colored only when stdout is a
// terminal and NO_COLOR is unset.
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   colorEnabled(os.Stdout),
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}
}

func colorEnabled(f *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	return &Logger{
		s: &sink{
			out:        cfg.Output,
			level:      cfg.Level,
			colorize:   cfg.Colorize,
			showCaller: cfg.ShowCaller,
			showTime:   cfg.ShowTime,
			timeFormat: cfg.TimeFormat,
		},
		prefix: cfg.Prefix,
	}
}

// Discard returns a logger that drops everything, Fatal included.
func Discard() *Logger {
	return New(Config{Level: OFF, Output: io.Discard})
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the process-wide logger. LOG_LEVEL sets its level.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			if level, err := ParseLevel(envLevel); err == nil {
				cfg.Level = level
			}
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// Named returns a child logger tagging its lines with name. The child
// shares output and level with its parent.
func (l *Logger) Named(name string) *Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &Logger{s: l.s, prefix: l.prefix, name: name}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.level = level
}

func (l *Logger) Level() LogLevel {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.Level() && level < OFF
}

func (l *Logger) SetOutput(w io.Writer) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.out = w
}

func (l *Logger) SetColorize(colorize bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.colorize = colorize
}

func (l *Logger) SetShowCaller(show bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.showCaller = show
}

// output writes one line. depth counts the frames between output and the
// code that made the logging call.
func (l *Logger) output(depth int, level LogLevel, msg string, args ...any) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if level < l.s.level || l.s.level == OFF {
		return
	}

	var b strings.Builder
	if l.s.showTime {
		b.WriteString(time.Now().Format(l.s.timeFormat))
		b.WriteByte(' ')
	}

	tag := "[" + level.String() + "]"
	if l.s.colorize {
		tag = levelColors[level] + tag + colorReset
	}
	b.WriteString(tag)

	if l.s.showCaller {
		if _, file, line, ok := runtime.Caller(depth); ok {
			fmt.Fprintf(&b, " %s:%d", filepath.Base(file), line)
		}
	}
	if l.prefix != "" {
		b.WriteByte(' ')
		b.WriteString(l.prefix)
	}
	if l.name != "" {
		b.WriteString(" (" + l.name + ")")
	}

	b.WriteByte(' ')
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}
	b.WriteByte('\n')
	io.WriteString(l.s.out, b.String())

	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.output(2, DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.output(2, INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.output(2, WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.output(2, ERROR, msg, args...) }

// Fatal logs at FATAL level and exits the program.
func (l *Logger) Fatal(msg string, args ...any) { l.output(2, FATAL, msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.output(2, DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.output(2, INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.output(2, WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.output(2, ERROR, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.output(2, FATAL, format, args...) }

// Package-level convenience functions using the default logger

func Debug(msg string, args ...any) { GetLogger().output(2, DEBUG, msg, args...) }
func Info(msg string, args ...any)  { GetLogger().output(2, INFO, msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().output(2, WARN, msg, args...) }
func Error(msg string, args ...any) { GetLogger().output(2, ERROR, msg, args...) }
func Fatal(msg string, args ...any) { GetLogger().output(2, FATAL, msg, args...) }

func Debugf(format string, args ...any) { GetLogger().output(2, DEBUG, format, args...) }
func Infof(format string, args ...any)  { GetLogger().output(2, INFO, format, args...) }
func Warnf(format string, args ...any)  { GetLogger().output(2, WARN, format, args...) }
func Errorf(format string, args ...any) { GetLogger().output(2, ERROR, format, args...) }
func Fatalf(format string, args ...any) { GetLogger().output(2, FATAL, format, args...) }

func SetLevel(level LogLevel)   { GetLogger().SetLevel(level) }
func SetOutput(w io.Writer)     { GetLogger().SetOutput(w) }
func SetColorize(colorize bool) { GetLogger().SetColorize(colorize) }
func SetShowCaller(show bool)   { GetLogger().SetShowCaller(show) }
