package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type severity int

const (
	sevInfo severity = iota
	sevOK
	sevWarn
	sevError
)

const (
	escReset  = "\x1b[0m"
	escRed    = "\x1b[31m"
	escGreen  = "\x1b[32m"
	escYellow = "\x1b[33m"
	escBlue   = "\x1b[34m"
)

var severityTags = map[severity]struct {
	tag   string
	color string
}{
	sevInfo:  {"INFO ", escBlue},
	sevOK:    {"OK   ", escGreen},
	sevWarn:  {"WARN ", escYellow},
	sevError: {"ERROR", escRed},
}

// renderStatusLine formats one status row: a colorized severity tag, a fixed
// width label, and an optional detail message.
func renderStatusLine(label string, kind severity, message string, colorize bool) string {
	entry := severityTags[kind]
	tag := entry.tag
	if colorize && entry.color != "" {
		tag = entry.color + tag + escReset
	}
	line := fmt.Sprintf("  %s  %-22s", tag, label)
	if message != "" {
		line += "  " + message
	}
	return strings.TrimRight(line, " ")
}

// renderSectionHeader formats a titled divider between output sections.
func renderSectionHeader(title string, colorize bool) string {
	title = strings.TrimSpace(title)
	header := title + "\n" + strings.Repeat("-", len(title))
	if colorize {
		return escBlue + header + escReset
	}
	return header
}

// shouldColorize reports whether ANSI colors are safe for the writer. The
// NO_COLOR convention always wins.
func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
