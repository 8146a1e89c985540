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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes read from filename
	Parse(ctx context.Context, filename string, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🩹 Rule is the pattern and replacement as written in a patch file
type Rule struct {
	Pattern         string `json:"pattern" yaml:"pattern"`
	Replacement     string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
	ReplacementFile string `json:"replacement_file,omitempty" yaml:"replacement_file,omitempty"`
	Syntax          string `json:"syntax,omitempty" yaml:"syntax,omitempty"`
}

// 📚 Config represents a complete patch file
type Config struct {
	Rule        Rule     `json:"rule" yaml:"rule"`
	Targets     []string `json:"targets" yaml:"targets"`
	Ignore      []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	FailOnError bool     `json:"fail_on_error,omitempty" yaml:"fail_on_error,omitempty"`
	Async       bool     `json:"async,omitempty" yaml:"async,omitempty"`
	Concurrency int      `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	location string // file this config was loaded from, empty when built in code
}

// Location returns the path the config was loaded from
func (cfg *Config) Location() string {
	return cfg.location
}

// Dir returns the directory relative paths resolve against. Configs built in
// code resolve against the working directory.
func (cfg *Config) Dir() string {
	if cfg.location == "" {
		return ""
	}
	return filepath.Dir(cfg.location)
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate(ctx context.Context) error {
	if cfg.Rule.Pattern == "" {
		return errors.Errorf("rule.pattern is required")
	}
	if cfg.Rule.Replacement != "" && cfg.Rule.ReplacementFile != "" {
		return errors.Errorf("rule.replacement and rule.replacement_file are mutually exclusive")
	}
	if _, err := text.ParseSyntax(cfg.Rule.Syntax); err != nil {
		return errors.Errorf("rule.syntax: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return errors.Errorf("at least one target is required")
	}
	for i, t := range cfg.Targets {
		if strings.TrimSpace(t) == "" {
			return errors.Errorf("targets[%d] is empty", i)
		}
	}
	for i, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return errors.Errorf("ignore[%d]: invalid pattern %q", i, pattern)
		}
	}
	if cfg.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative")
	}

	zerolog.Ctx(ctx).Debug().
		Str("location", cfg.location).
		Int("targets", len(cfg.Targets)).
		Msg("config validated")

	return nil
}

// 🩹 PatchRule compiles the rule, reading the replacement from
// replacement_file when set. One trailing newline of the file is dropped.
func (cfg *Config) PatchRule(ctx context.Context) (*text.PatchRule, error) {
	syntax, err := text.ParseSyntax(cfg.Rule.Syntax)
	if err != nil {
		return nil, err
	}

	replacement := cfg.Rule.Replacement
	if cfg.Rule.ReplacementFile != "" {
		path := cfg.resolve(cfg.Rule.ReplacementFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Errorf("reading replacement file: %w", err)
		}
		replacement = strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loaded replacement file")
	}

	rule, err := text.NewPatchRule(cfg.Rule.Pattern, replacement, syntax)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// 🎯 ResolvedTargets returns the targets in order, relative paths joined to
// Dir, minus any that match an ignore pattern. Nothing is globbed: each
// target is a single path.
func (cfg *Config) ResolvedTargets(ctx context.Context) []string {
	logger := zerolog.Ctx(ctx)
	out := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		resolved := cfg.resolve(t)
		if pattern, ok := cfg.ignored(t, resolved); ok {
			logger.Debug().Str("target", t).Str("pattern", pattern).Msg("target ignored by pattern")
			continue
		}
		out = append(out, resolved)
	}
	return out
}

// ignored reports the first ignore pattern matching the target as written or resolved
func (cfg *Config) ignored(written, resolved string) (string, bool) {
	for _, pattern := range cfg.Ignore {
		pattern = filepath.ToSlash(pattern)
		for _, candidate := range []string{filepath.ToSlash(filepath.Clean(written)), filepath.ToSlash(resolved)} {
			if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
				return pattern, true
			}
		}
	}
	return "", false
}

func (cfg *Config) resolve(path string) string {
	if filepath.IsAbs(path) || cfg.Dir() == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(cfg.Dir(), path)
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	syntax := cfg.Rule.Syntax
	if syntax == "" {
		syntax = string(text.SyntaxBackslash)
	}
	return fmt.Sprintf("/%s/ (%s) -> %d targets", cfg.Rule.Pattern, syntax, len(cfg.Targets))
}
