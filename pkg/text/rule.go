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

package text

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidRule is returned when a pattern does not compile or a replacement
// template does not fit the pattern.
var ErrInvalidRule = errors.New("invalid patch rule")

// 🔤 TemplateSyntax selects how group references are written in a replacement
type TemplateSyntax string

const (
	// SyntaxBackslash accepts \1, \g<1> and \g<name> references
	SyntaxBackslash TemplateSyntax = "backslash"
	// SyntaxGo accepts regexp.Expand references: $1, ${1}, ${name}
	SyntaxGo TemplateSyntax = "go"
)

// ParseSyntax maps a user supplied name to a TemplateSyntax. Empty means backslash.
func ParseSyntax(name string) (TemplateSyntax, error) {
	switch TemplateSyntax(strings.ToLower(strings.TrimSpace(name))) {
	case "", SyntaxBackslash:
		return SyntaxBackslash, nil
	case SyntaxGo:
		return SyntaxGo, nil
	default:
		return "", errors.Errorf("%w: unknown template syntax %q", ErrInvalidRule, name)
	}
}

// 🩹 PatchRule pairs a compiled pattern with a replacement template.
// A PatchRule is immutable and safe for concurrent use.
type PatchRule struct {
	pattern     *regexp.Regexp
	replacement string // as written by the caller
	template    string // regexp.Expand form
}

// 📊 ReplacementResult describes one application of a rule to some content
type ReplacementResult struct {
	OriginalContent  []byte
	ModifiedContent  []byte
	ReplacementCount int
	WasModified      bool
}

// 🏭 NewPatchRule compiles pattern and validates replacement against its groups.
func NewPatchRule(pattern, replacement string, syntax TemplateSyntax) (*PatchRule, error) {
	if pattern == "" {
		return nil, errors.Errorf("%w: pattern is required", ErrInvalidRule)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("%w: compiling pattern: %v", ErrInvalidRule, err)
	}

	var tmpl string
	switch syntax {
	case "", SyntaxBackslash:
		tmpl, err = translateBackslash(re, replacement)
	case SyntaxGo:
		tmpl, err = replacement, validateGoTemplate(re, replacement)
	default:
		err = errors.Errorf("unknown template syntax %q", syntax)
	}
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrInvalidRule, err)
	}

	return &PatchRule{
		pattern:     re,
		replacement: replacement,
		template:    tmpl,
	}, nil
}

// Pattern returns the source of the compiled pattern
func (r *PatchRule) Pattern() string {
	return r.pattern.String()
}

// Replacement returns the template as it was given to NewPatchRule
func (r *PatchRule) Replacement() string {
	return r.replacement
}

// 🔄 Apply replaces every non-overlapping match in content, scanning the whole
// string left to right, and returns the result with the number of matches.
func (r *PatchRule) Apply(content string) (string, int) {
	matches := r.pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, 0
	}

	out := make([]byte, 0, len(content))
	last := 0
	for _, m := range matches {
		out = append(out, content[last:m[0]]...)
		out = r.pattern.ExpandString(out, r.template, content, m)
		last = m[1]
	}
	out = append(out, content[last:]...)

	return string(out), len(matches)
}

// ReplaceText reads all of content and applies the rule to it
func (r *PatchRule) ReplaceText(ctx context.Context, content io.Reader) (*ReplacementResult, error) {
	original, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	modified, count := r.Apply(string(original))

	zerolog.Ctx(ctx).Trace().
		Str("pattern", r.Pattern()).
		Int("replacements", count).
		Msg("applied patch rule")

	return &ReplacementResult{
		OriginalContent:  original,
		ModifiedContent:  []byte(modified),
		ReplacementCount: count,
		WasModified:      modified != string(original),
	}, nil
}
