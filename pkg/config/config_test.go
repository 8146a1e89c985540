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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, dir string, cfg *Config)
	}{
		{
			name:     "yaml_config",
			filename: ".patchrc.yaml",
			config: `
rule:
  pattern: '(\w+)\.old\(\)'
  replacement: '\1.new()'
targets:
  - a.js
  - /abs/b.js
ignore:
  - "**/vendor/**"
fail_on_error: true
async: true
concurrency: 8
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, `(\w+)\.old\(\)`, cfg.Rule.Pattern, "pattern should match")
				assert.Equal(t, `\1.new()`, cfg.Rule.Replacement, "replacement should match")
				assert.Equal(t, []string{"a.js", "/abs/b.js"}, cfg.Targets, "targets should match")
				assert.Equal(t, []string{"**/vendor/**"}, cfg.Ignore, "ignore should match")
				assert.True(t, cfg.FailOnError, "fail_on_error should be true")
				assert.True(t, cfg.Async, "async should be true")
				assert.Equal(t, 8, cfg.Concurrency, "concurrency should match")
				assert.Equal(t, dir, cfg.Dir(), "dir should be the config directory")
			},
		},
		{
			name:     "yml_extension",
			filename: "patch.yml",
			config: `
rule:
  pattern: foo
targets: [a.txt]
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "foo", cfg.Rule.Pattern)
				assert.Empty(t, cfg.Rule.Replacement, "replacement may be empty")
				assert.False(t, cfg.Async, "async should default to false")
			},
		},
		{
			name:     "json_config",
			filename: "patch.json",
			config: `{
  "rule": {"pattern": "(a)(b)", "replacement": "${2}${1}", "syntax": "go"},
  "targets": ["x.txt", "y.txt"]
}`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "(a)(b)", cfg.Rule.Pattern)
				assert.Equal(t, "${2}${1}", cfg.Rule.Replacement)
				assert.Equal(t, "go", cfg.Rule.Syntax)
				assert.Len(t, cfg.Targets, 2)
			},
		},
		{
			name:     "hcl_config",
			filename: "patch.hcl",
			config: `
rule {
  pattern     = "(\\w+)\\.old"
  replacement = "\\1.new"
}
targets       = ["a.js", "${config_dir}/b.js"]
ignore        = ["*.min.js"]
fail_on_error = true
concurrency   = 2
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, `(\w+)\.old`, cfg.Rule.Pattern)
				assert.Equal(t, `\1.new`, cfg.Rule.Replacement)
				assert.Equal(t, []string{"a.js", filepath.Join(dir, "b.js")}, cfg.Targets)
				assert.Equal(t, []string{"*.min.js"}, cfg.Ignore)
				assert.True(t, cfg.FailOnError)
				assert.Equal(t, 2, cfg.Concurrency)
			},
		},
		{
			name:     "hcl_heredoc_keeps_backslashes",
			filename: "patch.hcl",
			config: `
rule {
  pattern     = "x"
  replacement = <<EOT
\1 stays
EOT
}
targets = ["a.js"]
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "\\1 stays\n", cfg.Rule.Replacement)
			},
		},
		{
			name:     "bare_patchrc_yaml",
			filename: ".patchrc",
			config: `
rule:
  pattern: foo
targets: [a.txt]
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "foo", cfg.Rule.Pattern)
			},
		},
		{
			name:     "bare_patchrc_hcl",
			filename: ".patchrc",
			config: `
rule {
  pattern = "foo"
}
targets = ["a.txt"]
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "foo", cfg.Rule.Pattern)
				assert.Equal(t, []string{"a.txt"}, cfg.Targets)
			},
		},
		{
			name:        "bare_patchrc_garbage",
			filename:    ".patchrc",
			config:      "{{{ not a config",
			wantErr:     true,
			errContains: "as YAML",
		},
		{
			name:     "yaml_unknown_field",
			filename: "patch.yaml",
			config: `
rule:
  pattern: foo
targets: [a.txt]
destination: /tmp
`,
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:        "json_unknown_field",
			filename:    "patch.json",
			config:      `{"rule": {"pattern": "a"}, "targets": ["a"], "extra": 1}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:     "hcl_unknown_attribute",
			filename: "patch.hcl",
			config: `
rule {
  pattern = "a"
}
targets = ["a"]
provider = "github"
`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name:     "hcl_missing_rule_block",
			filename: "patch.hcl",
			config: `
targets = ["a"]
`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name:     "missing_pattern",
			filename: "patch.yaml",
			config: `
rule:
  replacement: x
targets: [a.txt]
`,
			wantErr:     true,
			errContains: "rule.pattern is required",
		},
		{
			name:     "missing_targets",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
`,
			wantErr:     true,
			errContains: "at least one target is required",
		},
		{
			name:     "empty_target",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
targets: ["a", "  "]
`,
			wantErr:     true,
			errContains: "targets[1] is empty",
		},
		{
			name:     "both_replacements",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
  replacement: y
  replacement_file: y.txt
targets: [a]
`,
			wantErr:     true,
			errContains: "mutually exclusive",
		},
		{
			name:     "unknown_syntax",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
  syntax: perl
targets: [a]
`,
			wantErr:     true,
			errContains: "rule.syntax",
		},
		{
			name:     "bad_ignore_pattern",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
targets: [a]
ignore: ["[unclosed"]
`,
			wantErr:     true,
			errContains: "ignore[0]: invalid pattern",
		},
		{
			name:     "negative_concurrency",
			filename: "patch.yaml",
			config: `
rule:
  pattern: x
targets: [a]
concurrency: -2
`,
			wantErr:     true,
			errContains: "concurrency must not be negative",
		},
		{
			name:        "unsupported_extension",
			filename:    "patch.toml",
			config:      `rule = {}`,
			wantErr:     true,
			errContains: `unsupported file extension ".toml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeConfig(t, dir, tt.filename, tt.config)

			cfg, err := LoadConfig(testContext(t), path)
			if tt.wantErr {
				require.Error(t, err, "LoadConfig should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should contain expected message")
				return
			}

			require.NoError(t, err, "LoadConfig should succeed")
			assert.Equal(t, path, cfg.Location())
			if tt.check != nil {
				tt.check(t, dir, cfg)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(testContext(t), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestConfig_ResolvedTargets(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "patch.yaml", `
rule:
  pattern: x
targets:
  - src/app.js
  - ./src/vendor/lib.js
  - /elsewhere/tool.js
  - dist/app.min.js
  - src/app.js
ignore:
  - "**/vendor/**"
  - "**/*.min.js"
`)

	cfg, err := LoadConfig(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "src", "app.js"),
		"/elsewhere/tool.js",
		filepath.Join(dir, "src", "app.js"),
	}, cfg.ResolvedTargets(ctx), "relative targets resolve against the config dir and ignored ones drop out")
}

func TestConfig_ResolvedTargets_InCode(t *testing.T) {
	cfg := &Config{
		Rule:    Rule{Pattern: "x"},
		Targets: []string{"a/b.js", "a/../c.js"},
	}
	require.NoError(t, cfg.Validate(testContext(t)))
	assert.Equal(t, "", cfg.Dir())
	assert.Equal(t, []string{"a/b.js", "c.js"}, cfg.ResolvedTargets(testContext(t)))
}

func TestConfig_PatchRule(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeConfig(t, dir, "block.txt", "\\1// patched\n\\1done();\n")

	tests := []struct {
		name      string
		rule      Rule
		input     string
		want      string
		wantError string
		wantIs    error
	}{
		{
			name:  "inline_replacement",
			rule:  Rule{Pattern: `(\s+)todo\(\);`, Replacement: `\1done();`},
			input: "{\n  todo();\n}",
			want:  "{\n  done();\n}",
		},
		{
			name:  "replacement_file_drops_one_trailing_newline",
			rule:  Rule{Pattern: `(\s+)todo\(\);`, ReplacementFile: "block.txt"},
			input: "{\n  todo();\n}",
			want:  "{\n  // patched\n\n  done();\n}",
		},
		{
			name:  "go_syntax",
			rule:  Rule{Pattern: `(a)(b)`, Replacement: `${2}${1}`, Syntax: "go"},
			input: "ab",
			want:  "ba",
		},
		{
			name:      "missing_replacement_file",
			rule:      Rule{Pattern: `x`, ReplacementFile: "missing.txt"},
			wantError: "reading replacement file",
		},
		{
			name:      "invalid_rule",
			rule:      Rule{Pattern: `(x`},
			wantError: "compiling pattern",
			wantIs:    text.ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Rule: tt.rule, Targets: []string{"a"}, location: filepath.Join(dir, "patch.yaml")}

			rule, err := cfg.PatchRule(ctx)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				if tt.wantIs != nil {
					assert.True(t, errors.Is(err, tt.wantIs))
				}
				return
			}

			require.NoError(t, err)
			got, _ := rule.Apply(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", Discover(dir), "empty dir has no patch file")

	writeConfig(t, dir, ".patchrc.hcl", "")
	assert.Equal(t, filepath.Join(dir, ".patchrc.hcl"), Discover(dir))

	writeConfig(t, dir, ".patchrc.yaml", "")
	assert.Equal(t, filepath.Join(dir, ".patchrc.yaml"), Discover(dir), "yaml wins over hcl")
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{Rule: Rule{Pattern: "a+"}, Targets: []string{"x", "y"}}
	assert.Equal(t, "/a+/ (backslash) -> 2 targets", cfg.String())
}

func TestLoadConfig_ToolCardExample(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeConfig(t, dir, "toolcard.txt", "\\1let toolCard = container.querySelector('.tool-card');\n")
	path := writeConfig(t, dir, ".patchrc.yaml", `
rule:
  pattern: '(\s+)const toolCard = container\.querySelector\(''\.tool-card''\);\s+if \(!toolCard\) return;'
  replacement_file: toolcard.txt
targets:
  - js/pdf/pdf-security.js
  - vendor/js/image-crop.js
ignore:
  - "vendor/**"
`)

	cfg, err := LoadConfig(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "js", "pdf", "pdf-security.js")}, cfg.ResolvedTargets(ctx))

	rule, err := cfg.PatchRule(ctx)
	require.NoError(t, err)
	got, count := rule.Apply("{\n    const toolCard = container.querySelector('.tool-card');\n    if (!toolCard) return;\n}")
	assert.Equal(t, 1, count)
	assert.Equal(t, "{\n    let toolCard = container.querySelector('.tool-card');\n}", got)
}
