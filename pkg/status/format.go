package status

import (
	"fmt"
)

// FileFormatter defines how file outcomes and progress should be formatted
type FileFormatter interface {
	// FormatFileOperation formats the outcome of a single file
	FormatFileOperation(path string, status FileStatus, err error) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatSummary formats the final count of a run
	FormatSummary(fixed, total int) string
}

// DefaultFileFormatter provides a default implementation of FileFormatter
type DefaultFileFormatter struct{}

// NewDefaultFileFormatter creates a new DefaultFileFormatter
func NewDefaultFileFormatter() *DefaultFileFormatter {
	return &DefaultFileFormatter{}
}

// FormatFileOperation formats a file outcome with emojis
func (f *DefaultFileFormatter) FormatFileOperation(path string, status FileStatus, err error) string {
	var msg string
	switch status {
	case StatusFixed:
		msg = fmt.Sprintf("✅ Fixed: %s", path)
	case StatusUnchanged:
		msg = fmt.Sprintf("⚠️  No change needed: %s", path)
	case StatusNotFound:
		msg = fmt.Sprintf("❌ Not found: %s", path)
	case StatusReadError:
		msg = fmt.Sprintf("❌ Read failed: %s", path)
	case StatusWriteError:
		msg = fmt.Sprintf("❌ Write failed: %s", path)
	default:
		msg = fmt.Sprintf("❔ Unknown: %s", path)
	}
	if err != nil && status != StatusNotFound {
		msg += fmt.Sprintf(" (%v)", err)
	}
	return msg
}

// FormatProgress formats a progress message with percentage
func (f *DefaultFileFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}
	if percentage > 100 {
		percentage = 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatSummary formats the aggregate fixed count
func (f *DefaultFileFormatter) FormatSummary(fixed, total int) string {
	noun := "files"
	if fixed == 1 {
		noun = "file"
	}
	return fmt.Sprintf("🎉 Fixed %d %s (%d processed)", fixed, noun, total)
}
