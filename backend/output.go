package backend

import "github.com/fatih/color"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	titleColor   = color.New(color.Bold)
)

// Info prints a cyan status line.
func Info(format string, a ...interface{}) { infoColor.Printf(format+"\n", a...) }

// Success prints a green status line.
func Success(format string, a ...interface{}) { successColor.Printf(format+"\n", a...) }

// Warn prints a yellow status line.
func Warn(format string, a ...interface{}) { warnColor.Printf(format+"\n", a...) }

// Error prints a red status line.
func Error(format string, a ...interface{}) { errorColor.Printf(format+"\n", a...) }
