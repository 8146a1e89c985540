// Package operation provides the batch patcher that applies one rule to a list of files
package operation

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/status"
	"github.com/walteh/patchrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// ErrFilesFailed is returned by RunSummary.Err when any file ended in an error outcome
var ErrFilesFailed = errors.New("one or more files failed")

// DefaultConcurrency is the number of files patched at once in async mode
const DefaultConcurrency = 4

// 🎯 Outcome is what happened to a single target during a run
type Outcome struct {
	Path         string
	Status       status.FileStatus
	Replacements int   // matches found, set for Fixed and Unchanged
	Err          error // cause for NotFound, ReadError and WriteError
}

// 📋 RunSummary aggregates the outcomes of one run in input order
type RunSummary struct {
	Fixed    int
	Outcomes []Outcome
}

// Count returns how many outcomes have the given status
func (s *RunSummary) Count(st status.FileStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in an error
func (s *RunSummary) Failed() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Status.IsError() {
			failed = append(failed, o)
		}
	}
	return failed
}

// HasErrors reports whether any file ended in an error
func (s *RunSummary) HasErrors() bool {
	for _, o := range s.Outcomes {
		if o.Status.IsError() {
			return true
		}
	}
	return false
}

// Err returns ErrFilesFailed when the run has error outcomes
func (s *RunSummary) Err() error {
	if failed := s.Failed(); len(failed) > 0 {
		return errors.Errorf("%w: %d of %d", ErrFilesFailed, len(failed), len(s.Outcomes))
	}
	return nil
}

// 🔧 Options contains configuration for the patcher
type Options struct {
	// Files performs existence checks, reads and atomic writes
	Files status.FileManager
	// Reporter receives progress, optional
	Reporter status.StatusReporter
	// Async patches distinct files concurrently
	Async bool
	// Concurrency bounds async mode, DefaultConcurrency when zero
	Concurrency int
}

// 🩹 Patcher applies a rule to a batch of files
type Patcher struct {
	files    status.FileManager
	reporter status.StatusReporter
	runner   *OperationRunner
}

// 🏭 New creates a new patcher with the given options
func New(opts Options) (*Patcher, error) {
	if opts.Files == nil {
		return nil, errors.Errorf("file manager is required")
	}
	if opts.Concurrency < 0 {
		return nil, errors.Errorf("concurrency must not be negative, got %d", opts.Concurrency)
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Patcher{
		files:    opts.Files,
		reporter: opts.Reporter,
		runner:   NewRunner(opts.Async, opts.Concurrency),
	}, nil
}

// 🏃 Run patches every target in order and returns the summary. Per-file
// failures are recorded in the summary, never returned. An error is returned
// only for a nil rule or when ctx is cancelled before all files were started;
// in that case the summary holds the files that did finish.
func (p *Patcher) Run(ctx context.Context, targets []string, rule *text.PatchRule) (*RunSummary, error) {
	if rule == nil {
		return nil, errors.Errorf("%w: rule is required", text.ErrInvalidRule)
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Int("targets", len(targets)).
		Str("pattern", rule.Pattern()).
		Str("replacement", rule.Replacement()).
		Bool("async", p.runner.async).
		Msg("starting patch run")

	if p.reporter != nil {
		p.reporter.StartOperation(ctx, len(targets))
		defer p.reporter.FinishOperation(ctx)
	}

	locks := p.pathLocks(targets)
	outcomes := make([]Outcome, len(targets))
	done := make([]bool, len(targets))

	runErr := p.runner.Run(ctx, len(targets), func(ctx context.Context, i int) {
		mu := locks[p.lockKey(targets[i])]
		mu.Lock()
		outcomes[i] = p.patchFile(ctx, targets[i], rule)
		mu.Unlock()

		done[i] = true
		if p.reporter != nil {
			p.reporter.TrackFile(ctx, outcomes[i].Path, outcomes[i].Status, outcomes[i].Err)
		}
	})

	summary := &RunSummary{Outcomes: make([]Outcome, 0, len(targets))}
	for i, o := range outcomes {
		if !done[i] {
			continue
		}
		if o.Status == status.StatusFixed {
			summary.Fixed++
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}

	logger.Debug().
		Int("fixed", summary.Fixed).
		Int("processed", len(summary.Outcomes)).
		Msg("patch run complete")

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

// 📄 patchFile runs the check, read, substitute, compare, write sequence for one file
func (p *Patcher) patchFile(ctx context.Context, path string, rule *text.PatchRule) Outcome {
	logger := zerolog.Ctx(ctx).With().Str("path", path).Logger()
	out := Outcome{Path: path}

	exists, err := p.files.FileExists(ctx, path)
	if err != nil {
		out.Status = status.StatusReadError
		out.Err = err
		return out
	}
	if !exists {
		out.Status = status.StatusNotFound
		out.Err = errors.Errorf("%s: %w", path, fs.ErrNotExist)
		return out
	}

	content, err := p.files.ReadText(ctx, path)
	if err != nil {
		out.Status = status.StatusReadError
		out.Err = err
		return out
	}

	result, err := rule.ReplaceText(ctx, strings.NewReader(content))
	if err != nil {
		out.Status = status.StatusReadError
		out.Err = err
		return out
	}
	count := result.ReplacementCount
	out.Replacements = count
	if !result.WasModified {
		logger.Debug().Int("matches", count).Msg("no change needed")
		out.Status = status.StatusUnchanged
		return out
	}

	if err := p.files.WriteFileAtomic(ctx, path, result.ModifiedContent); err != nil {
		out.Status = status.StatusWriteError
		out.Err = err
		return out
	}

	logger.Debug().Int("replacements", count).Msg("fixed file")
	out.Status = status.StatusFixed
	return out
}

// lockKey names the file a target ends up writing: the resolved path with
// symlinks followed, or the resolved path when it cannot be evaluated
func (p *Patcher) lockKey(target string) string {
	resolved := p.files.Resolve(target)
	if followed, err := filepath.EvalSymlinks(resolved); err == nil {
		return followed
	}
	return resolved
}

// pathLocks builds one mutex per distinct file
func (p *Patcher) pathLocks(targets []string) map[string]*sync.Mutex {
	locks := make(map[string]*sync.Mutex, len(targets))
	for _, t := range targets {
		key := p.lockKey(t)
		if _, ok := locks[key]; !ok {
			locks[key] = &sync.Mutex{}
		}
	}
	return locks
}
