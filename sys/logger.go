package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Component tags shown in brackets after the timestamp.
const (
	CompDatabase = "database"
	CompLoader   = "loader"
	CompVoice    = "voice"
	CompQueue    = "queue"
	CompDownload = "download"
)

// LevelFatal sits above error; LogFatal panics after emitting it.
const LevelFatal = slog.LevelError + 4

var (
	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	levelStyles = []struct {
		min   slog.Level
		name  string
		color *color.Color
	}{
		{LevelFatal, "FATAL", color.New(color.FgRed, color.Bold)},
		{slog.LevelError, "ERROR", color.New(color.FgRed)},
		{slog.LevelWarn, "WARN", color.New(color.FgYellow)},
		{slog.LevelInfo, "INFO", color.New()},
	}
	debugStyle = color.New(color.FgHiBlack)

	componentColors = map[string]*color.Color{
		CompDatabase: color.New(),
		CompLoader:   color.New(color.FgBlue),
		CompVoice:    color.New(color.FgMagenta),
		CompQueue:    color.New(color.FgHiMagenta),
		CompDownload: color.New(color.FgCyan),
	}
	fallbackComponentColor = color.New(color.FgCyan)

	logFile *os.File
	logMu   sync.Mutex
)

func init() {
	InitLogger(false, false)
}

// InitLogger installs the bot handler as the slog default. With saveToFile the
// output is also appended, without colors, to <project>.log.
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile

	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv(EnvDebug), "true") {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var out io.Writer = os.Stdout
	if saveToFile {
		name := GetProjectName() + ".log"
		f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", name, err)
		} else {
			logFile = f
			out = io.MultiWriter(os.Stdout, NewStripANSIWriter(f))
		}
	}

	Logger = slog.New(NewBotLogHandler(out, &BotLogHandlerOptions{Silent: silent, Level: level}))
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

func logAs(level slog.Level, component, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if component == "" {
		slog.Log(context.Background(), level, msg)
		return
	}
	slog.Log(context.Background(), level, msg, slog.String("component", component))
}

func LogInfo(format string, v ...any)  { logAs(slog.LevelInfo, "", format, v...) }
func LogWarn(format string, v ...any)  { logAs(slog.LevelWarn, "", format, v...) }
func LogError(format string, v ...any) { logAs(slog.LevelError, "", format, v...) }
func LogDebug(format string, v ...any) { logAs(slog.LevelDebug, "", format, v...) }

// LogFatal logs at fatal level and panics so deferred cleanup in main still runs.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), LevelFatal, msg)
	panic(msg)
}

func LogDatabase(format string, v ...any) { logAs(slog.LevelInfo, CompDatabase, format, v...) }
func LogLoader(format string, v ...any)   { logAs(slog.LevelInfo, CompLoader, format, v...) }
func LogVoice(format string, v ...any)    { logAs(slog.LevelInfo, CompVoice, format, v...) }
func LogQueue(format string, v ...any)    { logAs(slog.LevelInfo, CompQueue, format, v...) }
func LogDownload(format string, v ...any) { logAs(slog.LevelInfo, CompDownload, format, v...) }

// LogDownloadWarn is the warn-level variant used for failed attempts.
func LogDownloadWarn(format string, v ...any) { logAs(slog.LevelWarn, CompDownload, format, v...) }

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

// BotLogHandler renders "15:04:05 [LEVEL] [COMPONENT] message" lines. INFO is
// omitted when a component tag is present.
type BotLogHandler struct {
	w         io.Writer
	opts      *BotLogHandlerOptions
	mu        *sync.Mutex
	component string
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &BotLogHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return !h.opts.Silent && level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	if h.opts.Silent {
		return nil
	}

	component := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			return false
		}
		return true
	})
	name, lc := levelStyle(r.Level)

	var line string
	if component != "" {
		tag := fmt.Sprintf("[%s] %s", strings.ToUpper(component), r.Message)
		line = colorize(componentColor(component), tag)
		if name != "INFO" {
			line = lc.Sprintf("[%s]", name) + " " + line
		}
	} else {
		line = colorize(lc, fmt.Sprintf("[%s] %s", name, r.Message))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "%s %s\n", time.Now().Format(DefaultTimeFormat), line)
	return err
}

// WithAttrs keeps a "component" attribute so Logger.With("component", ...) tags lines.
func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	for _, a := range attrs {
		if a.Key == "component" {
			clone := *h
			clone.component = a.Value.String()
			return &clone
		}
	}
	return h
}

func (h *BotLogHandler) WithGroup(string) slog.Handler { return h }

func levelStyle(l slog.Level) (string, *color.Color) {
	for _, s := range levelStyles {
		if l >= s.min {
			return s.name, s.color
		}
	}
	return "DEBUG", debugStyle
}

func componentColor(name string) *color.Color {
	if c, ok := componentColors[strings.ToLower(name)]; ok {
		return c
	}
	return fallbackComponentColor
}

// colorize applies c to text, re-opening c after any reset embedded in text.
func colorize(c *color.Color, text string) string {
	const reset = "\x1b[0m"
	if !strings.Contains(text, reset) {
		return c.Sprint(text)
	}
	open, _, ok := strings.Cut(c.Sprint("\x00"), "\x00")
	if !ok || open == "" {
		return text
	}
	return c.Sprint(strings.ReplaceAll(text, reset, reset+open))
}

// StripANSIWriter removes color escapes before writing to w.
type StripANSIWriter struct {
	w io.Writer
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{w: w}
}

func (s *StripANSIWriter) Write(p []byte) (int, error) {
	if _, err := s.w.Write(ansiPattern.ReplaceAll(p, nil)); err != nil {
		return 0, err
	}
	return len(p), nil
}
