package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"reelplan/internal/deps"
	"reelplan/internal/jobs"
	"reelplan/internal/plan"
	"reelplan/internal/segments"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 14

var statusKinds = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusWriter prints aligned report lines, coloured when out is a terminal.
type statusWriter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusWriter(out io.Writer) *statusWriter {
	return &statusWriter{out: out, colorize: shouldColorize(out)}
}

// section starts a titled block, separated from the previous one by a blank line.
func (w *statusWriter) section(title string) {
	if w.sections > 0 {
		fmt.Fprintln(w.out)
	}
	w.sections++
	fmt.Fprintln(w.out, renderSectionHeader(title, w.colorize))
}

func (w *statusWriter) line(label string, kind statusKind, message string) {
	fmt.Fprintln(w.out, renderStatusLine(label, kind, message, w.colorize))
}

func (w *statusWriter) info(label, message string) {
	w.line(label, statusInfo, message)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusKinds[kind]
	if !ok {
		style = statusKinds[statusInfo]
	}
	text := "[" + style.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", text)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func jobStatusKind(status jobs.Status) statusKind {
	switch status {
	case jobs.StatusSucceeded:
		return statusOK
	case jobs.StatusFailed:
		return statusError
	case jobs.StatusRunning:
		return statusWarn
	default:
		return statusInfo
	}
}

// noticeStatus reports a soft dependency; missing ones degrade the plan.
func noticeStatus(notice plan.DependencyNotice) (statusKind, string) {
	subject := firstNonEmpty(notice.ClipID, notice.AssetID, notice.ArtifactID)
	kind := statusOK
	if notice.Status == plan.DependencyMissing {
		kind = statusWarn
	}
	return kind, strings.TrimSpace(notice.Status + " " + subject)
}

func verificationStatus(check segments.OutputCheck) (statusKind, string) {
	if !check.OK {
		return statusError, check.Detail
	}
	return statusOK, fmt.Sprintf("%s (expected %s)", formatMS(check.ProbedMS), formatMS(check.ExpectedMS))
}

// binaryStatus reports a dependency check. Missing optional binaries only warn.
func binaryStatus(status deps.Status) (statusKind, string) {
	switch {
	case status.Available:
		return statusOK, status.Command
	case status.Optional:
		return statusWarn, status.Detail
	default:
		return statusError, status.Detail
	}
}
