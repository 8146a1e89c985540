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

package status

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidEncoding is returned by ReadText for content that is not valid UTF-8
var ErrInvalidEncoding = errors.New("content is not valid UTF-8")

// 📊 FileStatus is the outcome of patching a single file
type FileStatus int

const (
	StatusUnknown    FileStatus = iota
	StatusFixed                 // Content changed and was written
	StatusUnchanged             // Rule produced identical content, nothing written
	StatusNotFound              // Path does not exist
	StatusReadError             // Path exists but could not be read as text
	StatusWriteError            // New content could not be persisted, original intact
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusFixed:
		return "fixed"
	case StatusUnchanged:
		return "unchanged"
	case StatusNotFound:
		return "not-found"
	case StatusReadError:
		return "read-error"
	case StatusWriteError:
		return "write-error"
	default:
		return "unknown"
	}
}

// IsError reports whether the status is one of the error outcomes
func (s FileStatus) IsError() bool {
	return s == StatusNotFound || s == StatusReadError || s == StatusWriteError
}

// 💾 FileManager handles all file system operations of a patch run
type FileManager interface {
	// Resolve returns the absolute path a target refers to
	Resolve(path string) string
	FileExists(ctx context.Context, path string) (bool, error)
	ReadText(ctx context.Context, path string) (string, error)
	WriteFileAtomic(ctx context.Context, path string, content []byte) error
}

// 📈 StatusReporter tracks file status and reports progress
type StatusReporter interface {
	StartOperation(ctx context.Context, total int)
	TrackFile(ctx context.Context, path string, status FileStatus, err error)
	FinishOperation(ctx context.Context)
}

// tempFile is the part of *os.File used while writing atomically
type tempFile interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

func createTemp(dir, pattern string) (tempFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// 🔧 Manager implements both FileManager and StatusReporter
type Manager struct {
	baseDir    string          // Base directory for relative paths, empty means the working directory
	logger     *zerolog.Logger // Logger for status updates
	formatter  FileFormatter   // Formatter for status messages
	createTemp func(dir, pattern string) (tempFile, error)

	// Progress tracking
	mu        sync.Mutex
	total     int
	processed int
	fixed     int
}

// 🏭 New creates a new status manager
func New(baseDir string, logger *zerolog.Logger) *Manager {
	if baseDir != "" {
		baseDir = filepath.Clean(baseDir)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		baseDir:    baseDir,
		logger:     logger,
		formatter:  NewDefaultFileFormatter(),
		createTemp: createTemp,
	}
}

// 🔒 getAbsPath resolves a path against the base directory
func (m *Manager) getAbsPath(path string) string {
	if m.baseDir == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(m.baseDir, path)
}

// Resolve returns the absolute form of path as this manager sees it
func (m *Manager) Resolve(path string) string {
	p := m.getAbsPath(path)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// 🔍 Checksum generates a SHA-256 hash of the content
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// FileManager interface implementation

func (m *Manager) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(m.getAbsPath(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Errorf("checking file existence: %w", err)
}

func (m *Manager) ReadText(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(m.getAbsPath(path))
	if err != nil {
		return "", errors.Errorf("reading file: %w", err)
	}
	if !utf8.Valid(content) {
		return "", errors.Errorf("reading file: %w", ErrInvalidEncoding)
	}
	return string(content), nil
}

// WriteFileAtomic replaces the file with content by writing a temp file in the
// same directory and renaming it over the target. The target keeps its
// permission bits. On any failure the temp file is removed and the target is
// left as it was.
func (m *Manager) WriteFileAtomic(ctx context.Context, path string, content []byte) error {
	absPath := m.getAbsPath(path)

	// write through symlinks so the link itself survives
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(absPath); err == nil {
		mode = info.Mode().Perm()
		if err := checkWritable(absPath, mode); err != nil {
			return err
		}
	}

	tmp, err := m.createTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		if rmErr := os.Remove(tempPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			m.logger.Warn().Err(rmErr).Str("temp", tempPath).Msg("removing temp file")
		}
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return fail(errors.Errorf("writing temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(errors.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(errors.Errorf("closing temp file: %w", err))
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		return fail(errors.Errorf("setting temp file mode: %w", err))
	}

	// Rename temp file to target (atomic operation)
	if err := os.Rename(tempPath, absPath); err != nil {
		return fail(errors.Errorf("renaming temp file: %w", err))
	}

	m.logger.Debug().
		Str("path", absPath).
		Str("checksum", Checksum(content)).
		Int("size", len(content)).
		Msg("wrote file")

	return nil
}

// checkWritable refuses targets that could not be opened for writing in place
func checkWritable(path string, mode fs.FileMode) error {
	if mode&0o200 == 0 {
		return errors.Errorf("%s is read-only: %w", path, fs.ErrPermission)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Errorf("opening file for writing: %w", err)
	}
	_ = f.Close()
	return nil
}

// StatusReporter interface implementation

func (m *Manager) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = total
	m.processed = 0
	m.fixed = 0
	m.logger.Debug().Int("total", total).Msg(m.formatter.FormatProgress(0, total))
}

func (m *Manager) TrackFile(ctx context.Context, path string, status FileStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed++
	if status == StatusFixed {
		m.fixed++
	}
	event := m.logger.Debug()
	if status.IsError() {
		event = m.logger.Warn().Err(err)
	}
	event.
		Str("path", path).
		Str("status", status.String()).
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(m.formatter.FormatFileOperation(path, status, err))
}

func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Debug().
		Int("fixed", m.fixed).
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(m.formatter.FormatSummary(m.fixed, m.processed))
}
