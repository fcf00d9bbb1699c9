package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"ec2ctl/pkg/colors"
	"ec2ctl/pkg/security"
)

// LogDirEnv overrides the log directory from configuration.
const LogDirEnv = "EC2CTL_LOG_DIR"

var (
	fileLogger  *log.Logger
	logFile     *os.File
	loggerMutex sync.RWMutex
	writeMutex  sync.Mutex

	// Console output goes to stderr so stdout stays clean for piping.
	consoleOutput io.Writer = os.Stderr
	consoleLevel            = InfoLevel
)

// Level represents logging levels
type Level int

const (
	// DebugLevel for debug messages
	DebugLevel Level = iota
	// InfoLevel for info messages
	InfoLevel
	// WarnLevel for warning messages
	WarnLevel
	// ErrorLevel for error messages
	ErrorLevel
)

// ParseLevel maps a configuration string to a Level. Unknown values map to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// SetOutput redirects console output. Tests use this to capture log lines.
func SetOutput(w io.Writer) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	consoleOutput = w
}

// SetConsoleLevel sets the minimum level printed to the console.
// The log file always receives every level.
func SetConsoleLevel(level Level) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	consoleLevel = level
}

// getDefaultLogDir returns platform-appropriate default log directory
func getDefaultLogDir(homeDir string) string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, "ec2ctl", "logs")
		}
		return filepath.Join(homeDir, "AppData", "Local", "ec2ctl", "logs")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "ec2ctl")
	default:
		// XDG Base Directory
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "ec2ctl", "logs")
		}
		return filepath.Join(homeDir, ".local", "share", "ec2ctl", "logs")
	}
}

// getFilePermissions returns platform-appropriate file permissions
func getFilePermissions() os.FileMode {
	if runtime.GOOS == "windows" {
		return 0666
	}
	return 0600
}

// getDirPermissions returns platform-appropriate directory permissions
func getDirPermissions() os.FileMode {
	if runtime.GOOS == "windows" {
		return 0777
	}
	return 0755
}

// ResolveLogDir picks the log directory: EC2CTL_LOG_DIR, then the configured
// directory, then the platform default. Unsafe paths fall back to the default.
func ResolveLogDir(configured string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	dir := os.Getenv(LogDirEnv)
	if dir == "" {
		dir = configured
	}
	if dir == "" {
		return getDefaultLogDir(homeDir), nil
	}

	if strings.HasPrefix(dir, "~/") {
		dir = filepath.Join(homeDir, dir[2:])
	}

	if security.ContainsUnsafePath(dir) {
		fmt.Fprintf(os.Stderr, "Warning: Invalid log directory path %s, using default location\n", dir)
		return getDefaultLogDir(homeDir), nil
	}
	return dir, nil
}

// EnableFileLogging opens today's log file in dir, replacing any previous file.
func EnableFileLogging(dir string) error {
	if err := os.MkdirAll(dir, getDirPermissions()); err != nil {
		return fmt.Errorf("could not create log directory %s: %w", dir, err)
	}

	logFilePath := filepath.Join(dir, fmt.Sprintf("ec2ctl-%s.log", time.Now().Format("2006-01-02")))
	if err := security.ValidateFilePath(logFilePath, dir); err != nil {
		return fmt.Errorf("invalid log file path: %w", err)
	}
	// #nosec G304 - dir is validated by ResolveLogDir and the filename is fixed
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, getFilePermissions())
	if err != nil {
		return fmt.Errorf("could not open log file %s: %w", logFilePath, err)
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error closing previous log file: %v\n", err)
		}
	}
	logFile = file
	fileLogger = log.New(file, "", 0)
	return nil
}

// CloseLogger closes the log file. Call during application shutdown.
func CloseLogger() {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error closing log file: %v\n", err)
		}
		logFile = nil
		fileLogger = nil
	}
}

func getTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// logToFile writes a timestamped message to the log file (thread-safe)
func logToFile(level string, message string) {
	loggerMutex.RLock()
	logger := fileLogger
	loggerMutex.RUnlock()

	if logger != nil {
		logger.Printf("%s [%s] %s", getTimestamp(), level, message)
	}
}

func logToConsole(level Level, printFn func(io.Writer, string, ...interface{}), line string) {
	loggerMutex.RLock()
	w, threshold := consoleOutput, consoleLevel
	loggerMutex.RUnlock()

	if level < threshold {
		return
	}
	writeMutex.Lock()
	defer writeMutex.Unlock()
	printFn(w, "%s\n", line)
}

// emit prints a tagged, coloured line to the console and always records it in the log file
func emit(level Level, tag string, printFn func(io.Writer, string, ...interface{}), format string, args []interface{}) {
	message := fmt.Sprintf(format, args...)
	logToConsole(level, printFn, "["+tag+"] "+message)
	logToFile(tag, message)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	emit(InfoLevel, "INFO", colors.FprintSuccess, format, args)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	emit(WarnLevel, "WARN", colors.FprintWarning, format, args)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	emit(ErrorLevel, "ERROR", colors.FprintError, format, args)
}

// LogDebug logs a debug message. The console shows it only at DebugLevel.
func LogDebug(format string, args ...interface{}) {
	emit(DebugLevel, "DEBUG", colors.FprintData, format, args)
}

// LogSuccess logs a success message at info level
func LogSuccess(format string, args ...interface{}) {
	emit(InfoLevel, "SUCCESS", colors.FprintSuccess, format, args)
}

// Logger is a structured facade over the package-level functions.
// Services take a *Logger so tests can pass NewNoOpLogger().
type Logger struct {
	debugEnabled bool
	noOp         bool
}

// NewLogger creates a new logger instance with debug level control
func NewLogger(debug bool) *Logger {
	return &Logger{
		debugEnabled: debug,
	}
}

// NewNoOpLogger creates a logger that discards all output
func NewNoOpLogger() *Logger {
	return &Logger{
		noOp: true,
	}
}

// formatFields converts key-value pairs to a formatted string
func (l *Logger) formatFields(fields ...interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	var parts []string
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			parts = append(parts, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v=<no_value>", fields[i]))
		}
	}

	return " | " + strings.Join(parts, " ")
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	if l.noOp {
		return
	}
	LogInfo("%s%s", msg, l.formatFields(fields...))
}

// Debug logs a debug message (respects debug flag)
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if l.noOp || !l.debugEnabled {
		return
	}
	LogDebug("%s%s", msg, l.formatFields(fields...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	if l.noOp {
		return
	}
	LogWarn("%s%s", msg, l.formatFields(fields...))
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	if l.noOp {
		return
	}
	LogError("%s%s", msg, l.formatFields(fields...))
}
