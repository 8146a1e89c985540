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

package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// applyFlags holds the flags of the apply command
type applyFlags struct {
	configFile      string
	pattern         string
	replacement     string
	replacementFile string
	syntax          string
	ignore          []string
	async           bool
	concurrency     int
	failOnError     bool
	output          string
}

// NewApplyCmd creates a new apply command
func NewApplyCmd(rootOpts *opts.RootOpts) *cobra.Command {
	flags := &applyFlags{}

	cmd := &cobra.Command{
		Use:   "apply [targets...]",
		Short: "Apply the patch rule to every target",
		Long: `Apply loads the patch rule and targets, then rewrites each target in place.
It will:
1. Load the patch file given by --config, or discover one in the working directory
2. Override its rule and settings with any flags that were set
3. Append positional targets to the configured ones
4. Patch each file and print one status line per file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "apply").Logger().WithContext(cmd.Context())

			cfg, err := buildConfig(ctx, cmd, flags, args)
			if err != nil {
				return err
			}

			format, err := log.ParseFormat(flags.output)
			if err != nil {
				return err
			}

			rule, err := cfg.PatchRule(ctx)
			if err != nil {
				return err
			}

			files := status.New("", zerolog.Ctx(ctx))
			patcher, err := operation.New(operation.Options{
				Files:       files,
				Reporter:    files,
				Async:       cfg.Async,
				Concurrency: cfg.Concurrency,
			})
			if err != nil {
				return errors.Errorf("creating patcher: %w", err)
			}

			targets := cfg.ResolvedTargets(ctx)
			renderer := log.FromContext(ctx)
			renderer.Header(fmt.Sprintf("patching %d files with /%s/", len(targets), rule.Pattern()))

			summary, runErr := patcher.Run(ctx, targets, rule)
			if err := renderer.Render(ctx, summary, len(targets), format); err != nil {
				return err
			}
			if runErr != nil {
				return errors.Errorf("applying patch: %w", runErr)
			}

			if cfg.FailOnError {
				return summary.Err()
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "patch file path (default: discover .patchrc.* in the working directory)")
	f.StringVar(&flags.pattern, "pattern", "", "regular expression to search for")
	f.StringVar(&flags.replacement, "replacement", "", "replacement template")
	f.StringVar(&flags.replacementFile, "replacement-file", "", "read the replacement template from a file")
	f.StringVar(&flags.syntax, "syntax", "", "replacement template syntax: backslash or go")
	f.StringSliceVar(&flags.ignore, "ignore", nil, "skip targets matching this doublestar pattern")
	f.BoolVar(&flags.async, "async", false, "patch files concurrently")
	f.IntVar(&flags.concurrency, "concurrency", 0, fmt.Sprintf("files patched at once with --async (default %d)", operation.DefaultConcurrency))
	f.BoolVar(&flags.failOnError, "fail-on-error", false, "exit non-zero when any file is not found or cannot be read or written")
	f.StringVarP(&flags.output, "output", "o", string(log.FormatText), "output format: text or table")
	cmd.MarkFlagsMutuallyExclusive("replacement", "replacement-file")

	return cmd
}

// buildConfig merges the patch file, the flags that were set and the positional targets
func buildConfig(ctx context.Context, cmd *cobra.Command, flags *applyFlags, args []string) (*config.Config, error) {
	logger := zerolog.Ctx(ctx)
	changed := cmd.Flags().Changed

	path := flags.configFile
	if path == "" && !changed("pattern") {
		path = config.Discover(".")
		if path == "" {
			return nil, errors.Errorf("no patch file found in the working directory and --pattern not set")
		}
	}

	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(ctx, path)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
		logger.Debug().Str("config", cfg.Location()).Str("rule", cfg.String()).Msg("loaded patch file")
	}

	if changed("pattern") {
		cfg.Rule.Pattern = flags.pattern
	}
	if changed("replacement") {
		cfg.Rule.Replacement = flags.replacement
		cfg.Rule.ReplacementFile = ""
	}
	if changed("replacement-file") {
		abs, err := filepath.Abs(flags.replacementFile)
		if err != nil {
			return nil, errors.Errorf("resolving replacement file: %w", err)
		}
		cfg.Rule.ReplacementFile = abs
		cfg.Rule.Replacement = ""
	}
	if changed("syntax") {
		cfg.Rule.Syntax = flags.syntax
	}
	if changed("async") {
		cfg.Async = flags.async
	}
	if changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
	if changed("fail-on-error") {
		cfg.FailOnError = flags.failOnError
	}
	cfg.Ignore = append(cfg.Ignore, flags.ignore...)

	// positional targets are relative to the working directory, not the patch file
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, errors.Errorf("resolving target %q: %w", arg, err)
		}
		cfg.Targets = append(cfg.Targets, abs)
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, errors.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
