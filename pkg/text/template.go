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
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// translateBackslash rewrites a backslash style template into the form
// regexp.Expand understands, checking every group reference against re.
func translateBackslash(re *regexp.Regexp, tmpl string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl) + 8)

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		i++
		if i >= len(tmpl) {
			return "", errors.Errorf("trailing backslash in replacement")
		}

		c = tmpl[i]
		switch {
		case c == '\\':
			b.WriteByte('\\')
		case c == 'n':
			b.WriteByte('\n')
		case c == 't':
			b.WriteByte('\t')
		case c == 'r':
			b.WriteByte('\r')
		case c == 'g':
			end := strings.IndexByte(tmpl[i:], '>')
			if i+1 >= len(tmpl) || tmpl[i+1] != '<' || end < 0 {
				return "", errors.Errorf("malformed group reference at offset %d", i-1)
			}
			ref := tmpl[i+2 : i+end]
			if err := checkGroup(re, ref); err != nil {
				return "", err
			}
			b.WriteString("${" + ref + "}")
			i += end
		case isDigit(c):
			if c == '0' {
				return "", errors.Errorf(`group 0 must be written as \g<0>`)
			}
			ref := string(c)
			if i+1 < len(tmpl) && isDigit(tmpl[i+1]) {
				ref += string(tmpl[i+1])
				i++
			}
			if err := checkGroup(re, ref); err != nil {
				return "", err
			}
			b.WriteString("${" + ref + "}")
		case isASCIILetter(c):
			return "", errors.Errorf(`bad escape \%c in replacement`, c)
		default:
			// unknown non-letter escapes stay as written
			b.WriteByte('\\')
			if c == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(c)
			}
		}
	}

	return b.String(), nil
}

// validateGoTemplate checks the $ references of a regexp.Expand template.
// Malformed references are left alone since Expand copies them verbatim.
func validateGoTemplate(re *regexp.Regexp, tmpl string) error {
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '$' || i+1 >= len(tmpl) {
			continue
		}
		rest := tmpl[i+1:]
		if rest[0] == '$' {
			i++
			continue
		}

		var name string
		if rest[0] == '{' {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				continue
			}
			name = rest[1:end]
			i += end + 1
		} else {
			n := 0
			for n < len(rest) && isNameByte(rest[n]) {
				n++
			}
			name = rest[:n]
			i += n
		}

		if name == "" || !isName(name) {
			continue
		}
		if err := checkGroup(re, name); err != nil {
			return err
		}
	}
	return nil
}

// checkGroup reports whether ref names a group of re, by number or name
func checkGroup(re *regexp.Regexp, ref string) error {
	if ref == "" {
		return errors.Errorf("empty group reference")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n > re.NumSubexp() {
			return errors.Errorf("reference to group %d but pattern has %d groups", n, re.NumSubexp())
		}
		return nil
	}
	if !isName(ref) {
		return errors.Errorf("invalid group name %q", ref)
	}
	if re.SubexpIndex(ref) < 0 {
		return errors.Errorf("reference to unknown group %q", ref)
	}
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isASCIILetter(c) || isDigit(c) || c == '_'
}

func isName(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}
