package colors

import (
	"io"

	"github.com/fatih/color"
)

// Standardized color definitions for ec2ctl

var (
	// Header/Section colors - bright yellow with bold for headers and section titles
	Header = color.New(color.FgHiYellow, color.Bold)

	// Data/Results colors - bright cyan for data output like instance IDs, IP addresses, etc.
	Data = color.New(color.FgHiCyan)

	// Success message colors - bright green with bold for positive feedback
	Success = color.New(color.FgHiGreen, color.Bold)

	// Error message colors - bright red with bold for error messages
	Error = color.New(color.FgHiRed, color.Bold)

	// Warning message colors - bright yellow with bold for warnings
	Warning = color.New(color.FgHiYellow, color.Bold)
)

// Instance state colors
var (
	StateRunning = color.New(color.FgGreen)
	StateStopped = color.New(color.FgRed)
	StateOther   = color.New(color.FgYellow)
)

// Writer variants, used for progress output on stderr
func FprintHeader(w io.Writer, format string, args ...interface{}) {
	_, _ = Header.Fprintf(w, format, args...)
}

func FprintData(w io.Writer, format string, args ...interface{}) {
	_, _ = Data.Fprintf(w, format, args...)
}

func FprintSuccess(w io.Writer, format string, args ...interface{}) {
	_, _ = Success.Fprintf(w, format, args...)
}

func FprintError(w io.Writer, format string, args ...interface{}) {
	_, _ = Error.Fprintf(w, format, args...)
}

func FprintWarning(w io.Writer, format string, args ...interface{}) {
	_, _ = Warning.Fprintf(w, format, args...)
}

// Color formatting functions that return colored strings
func ColorSuccess(format string, args ...interface{}) string {
	return Success.Sprintf(format, args...)
}

func ColorError(format string, args ...interface{}) string {
	return Error.Sprintf(format, args...)
}

func ColorWarning(format string, args ...interface{}) string {
	return Warning.Sprintf(format, args...)
}

// ColorState colors an instance state: running green, stopped red, anything else yellow.
func ColorState(state string) string {
	switch state {
	case "running":
		return StateRunning.Sprint(state)
	case "stopped":
		return StateStopped.Sprint(state)
	default:
		return StateOther.Sprint(state)
	}
}
