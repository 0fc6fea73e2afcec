package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset = "\x1b[0m"
	labelPad  = 18
)

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// statusReport collects sectioned status lines and colours them only for
// terminals.
type statusReport struct {
	colorize bool
	lines    []string
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: isTerminal(w)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	r.lines = append(r.lines, r.paint(statusInfo, heading), r.paint(statusInfo, rule))
}

func (r *statusReport) add(label string, kind statusKind, message string) {
	line := fmt.Sprintf("  %-*s [%s]", labelPad, label+":", statusStyles[kind].label)
	if message != "" {
		line += " " + message
	}
	r.lines = append(r.lines, r.paint(kind, line))
}

func (r *statusReport) paint(kind statusKind, text string) string {
	if !r.colorize {
		return text
	}
	return statusStyles[kind].color + text + ansiReset
}

func (r *statusReport) String() string {
	return strings.Join(r.lines, "\n")
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
