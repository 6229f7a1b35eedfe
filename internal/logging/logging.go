package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"audit-analytics/internal/config"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the rotating log file written under the log directory.
const LogFileName = "audit-analytics.log"

// Init sets the global logger. Records go to stderr and to a rotating file.
// stdout is left alone: the MCP transport and the dashboard command own it.
func Init(verbose bool) {
	// Init runs before config.Load, so LOGS_FOLDER may only be in the binary's .env.
	exePath, exeErr := os.Executable()
	if exeErr == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	zerolog.SetGlobalLevel(Level(verbose))

	dir := Dir(exePath, exeErr)
	fileWriter, err := rotatingFile(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Logger = New(console(os.Stderr), fileWriter)
}

// Level maps the verbose flag to a zerolog level.
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Dir resolves the log directory the same way the configuration does:
// LOGS_FOLDER, else logs/ under DATA_PATH, else logs/ beside the binary.
func Dir(exePath string, exeErr error) string {
	exeDir := ""
	if exeErr == nil {
		exeDir = filepath.Dir(exePath)
	}
	return config.LogDir(exeDir)
}

// New builds a timestamped logger fanning out to every writer.
func New(writers ...io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
}

func console(f *os.File) io.Writer {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.RFC3339,
		NoColor:    !tty,
	}
}

func rotatingFile(dir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", dir, err)
	}
	_ = os.Remove(testFile)

	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     90, // days
		Compress:   true,
	}, nil
}
