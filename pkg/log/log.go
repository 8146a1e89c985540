// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	statusWidth = 12 // Width for status text
)

// Format selects how a run is rendered
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
)

// ParseFormat maps an --output value to a Format. Empty means text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", errors.Errorf("unknown output format %q, want text or table", name)
	}
}

// 🎯 Logger renders patch runs to the console and mirrors every line to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger. A nil zlog discards structured output.
func New(console io.Writer, zlog *zerolog.Logger) *Logger {
	l := &Logger{console: console, zlog: zerolog.Nop()}
	if zlog != nil {
		l.zlog = *zlog
	}
	return l
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func statusSymbol(st status.FileStatus) (string, color.Attribute) {
	switch st {
	case status.StatusFixed:
		return "✓", color.FgGreen
	case status.StatusUnchanged:
		return "•", color.FgCyan
	case status.StatusNotFound:
		return "?", color.FgYellow
	case status.StatusReadError, status.StatusWriteError:
		return "✗", color.FgRed
	default:
		return "-", color.FgWhite
	}
}

func statusLabel(st status.FileStatus) string {
	return strings.ReplaceAll(st.String(), "-", " ")
}

func outcomeDetail(o operation.Outcome) string {
	switch {
	case o.Status == status.StatusFixed:
		return plural(o.Replacements, "replacement")
	case o.Status.IsError() && o.Err != nil:
		return o.Err.Error()
	default:
		return ""
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// 📝 formatOutcome formats a single file outcome for display
func (l *Logger) formatOutcome(o operation.Outcome) string {
	symbol, symbolColor := statusSymbol(o.Status)

	line := fmt.Sprintf("%s%s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(symbol),
		fmt.Sprintf("%-*s", nameWidth, o.Path),
		fmt.Sprintf("%-*s", statusWidth, statusLabel(o.Status)))

	if detail := outcomeDetail(o); detail != "" {
		line += color.New(color.Faint).Sprint(detail)
	}
	return line
}

// 📝 LogOutcome prints one status line for a file
func (l *Logger) LogOutcome(ctx context.Context, o operation.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatOutcome(o))

	event := l.zlog.Info()
	if o.Status.IsError() {
		event = l.zlog.Warn().Err(o.Err)
	}
	event.
		Str("file", o.Path).
		Str("status", o.Status.String()).
		Int("replacements", o.Replacements).
		Msg("file outcome")
}

// summaryLine reads "Fixed N of M files" followed by any non-zero failure counts
func summaryLine(summary *operation.RunSummary, total int) string {
	line := fmt.Sprintf("Fixed %d of %s", summary.Fixed, plural(total, "file"))

	var parts []string
	for _, st := range []status.FileStatus{status.StatusNotFound, status.StatusReadError, status.StatusWriteError} {
		if n := summary.Count(st); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, statusLabel(st)))
		}
	}
	if skipped := total - len(summary.Outcomes); skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d not started", skipped))
	}
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	return line
}

// 📊 LogSummary prints the closing line of a run
func (l *Logger) LogSummary(ctx context.Context, summary *operation.RunSummary, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := summaryLine(summary, total)
	if summary.HasErrors() || len(summary.Outcomes) < total {
		fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(line))
	} else {
		fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(line))
	}

	l.zlog.Info().
		Int("fixed", summary.Fixed).
		Int("total", total).
		Int("failed", len(summary.Failed())).
		Msg("patch run complete")
}

// 📋 LogTable renders every outcome as a table followed by the summary line
func (l *Logger) LogTable(ctx context.Context, summary *operation.RunSummary, total int) error {
	data := pterm.TableData{{"File", "Status", "Replacements", "Error"}}
	for _, o := range summary.Outcomes {
		cause := ""
		if o.Err != nil {
			cause = o.Err.Error()
		}
		data = append(data, []string{o.Path, statusLabel(o.Status), fmt.Sprint(o.Replacements), cause})
	}

	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering table: %w", err)
	}

	l.mu.Lock()
	fmt.Fprintln(l.console, rendered)
	l.mu.Unlock()

	l.LogSummary(ctx, summary, total)
	return nil
}

// 🖨️ Render prints a finished run in the given format
func (l *Logger) Render(ctx context.Context, summary *operation.RunSummary, total int, format Format) error {
	if summary == nil {
		return nil
	}
	if format == FormatTable {
		return l.LogTable(ctx, summary, total)
	}
	for _, o := range summary.Outcomes {
		l.LogOutcome(ctx, o)
	}
	l.LogSummary(ctx, summary, total)
	return nil
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("patchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}
