// Copyright 2024 The markstream Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package markstream

import (
	"bytes"

	"golang.org/x/text/cases"

	"github.com/markstream/markstream/internal/entity"
)

// maxLabelLength is the longest [link label] the grammar permits,
// measured between the brackets.
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
const maxLabelLength = 999

// linkReference is the data of one [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
type linkReference struct {
	destination  []byte
	title        []byte
	titlePresent bool
}

// referenceMap is a mapping of [normalized labels] to link definitions.
// Entries are write-once: the first definition in source order wins.
//
// [normalized labels]: https://spec.commonmark.org/0.30/#matches
type referenceMap map[string]linkReference

func (m referenceMap) add(label []byte, ref linkReference) {
	key := normalizeLabel(label)
	if key == "" {
		return
	}
	if _, exists := m[key]; exists {
		return
	}
	m[key] = ref
}

func (m referenceMap) lookup(label []byte) (linkReference, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return linkReference{}, false
	}
	ref, ok := m[key]
	return ref, ok
}

// normalizeLabel strips and collapses whitespace
// and performs Unicode case folding,
// implementing the [matches] relation on link labels.
//
// [matches]: https://spec.commonmark.org/0.30/#matches
func normalizeLabel(label []byte) string {
	fields := bytes.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	// cases.Caser is stateful and must not be shared across goroutines.
	return cases.Fold().String(string(bytes.Join(fields, []byte(" "))))
}

// extractReferenceDefinitions parses link reference definitions
// from the beginning of a paragraph's assembled content,
// adds them to m, and returns the content that remains.
func extractReferenceDefinitions(m referenceMap, content []byte) []byte {
	pos := 0
	for pos < len(content) {
		next, ok := parseReferenceDefinition(m, content, pos)
		if !ok {
			break
		}
		pos = next
	}
	return content[pos:]
}

func parseReferenceDefinition(m referenceMap, s []byte, pos int) (newPos int, ok bool) {
	labelStart, labelEnd, pos, ok := parseLinkLabel(s, pos)
	if !ok {
		return 0, false
	}
	label := s[labelStart:labelEnd]
	if isBlankLabel(label) {
		return 0, false
	}
	if pos >= len(s) || s[pos] != ':' {
		return 0, false
	}
	pos++
	pos = skipLinkWhitespace(s, pos, 1)

	angled := pos < len(s) && s[pos] == '<'
	destStart, destEnd, pos, ok := parseLinkDestination(s, pos)
	if !ok || destStart == destEnd && !angled {
		return 0, false
	}
	ref := linkReference{destination: resolveEscapes(s[destStart:destEnd])}

	// The definition is already valid if the destination ends its line.
	noTitleEnd := -1
	if q := skipSpacesAndTabs(s, pos); q == len(s) {
		noTitleEnd = q
	} else if s[q] == '\n' {
		noTitleEnd = q + 1
	}

	// Attempt a title, which must be separated from the destination
	// by whitespace and may start on the next line.
	if q := skipLinkWhitespace(s, pos, 1); q > pos && q < len(s) {
		if titleStart, titleEnd, afterTitle, titleOK := parseLinkTitle(s, q); titleOK {
			end := -1
			if r := skipSpacesAndTabs(s, afterTitle); r == len(s) {
				end = r
			} else if s[r] == '\n' {
				end = r + 1
			}
			if end >= 0 {
				ref.title = resolveEscapes(s[titleStart:titleEnd])
				ref.titlePresent = true
				m.add(label, ref)
				return end, true
			}
		}
	}

	if noTitleEnd < 0 {
		return 0, false
	}
	m.add(label, ref)
	return noTitleEnd, true
}

func isBlankLabel(label []byte) bool {
	for _, c := range label {
		if c != ' ' && c != '\t' && c != '\n' {
			return false
		}
	}
	return true
}

// parseLinkLabel parses a bracketed link label starting at s[pos].
// It returns the interior span and the position after the closing bracket.
func parseLinkLabel(s []byte, pos int) (start, end, newPos int, ok bool) {
	if pos >= len(s) || s[pos] != '[' {
		return 0, 0, 0, false
	}
	i := pos + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
				i += 2
			} else {
				i++
			}
		case '[':
			return 0, 0, 0, false
		case ']':
			if i-(pos+1) > maxLabelLength {
				return 0, 0, 0, false
			}
			return pos + 1, i, i + 1, true
		default:
			i++
		}
	}
	return 0, 0, 0, false
}

// parseLinkDestination parses a [link destination] starting at s[pos],
// either in angle brackets or as a bare run with balanced parentheses.
// The returned span excludes any angle brackets.
//
// [link destination]: https://spec.commonmark.org/0.30/#link-destination
func parseLinkDestination(s []byte, pos int) (start, end, newPos int, ok bool) {
	if pos < len(s) && s[pos] == '<' {
		i := pos + 1
		for i < len(s) {
			switch s[i] {
			case '\\':
				if i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
					i += 2
				} else {
					i++
				}
			case '>':
				return pos + 1, i, i + 1, true
			case '<', '\n':
				return 0, 0, 0, false
			default:
				i++
			}
		}
		return 0, 0, 0, false
	}

	depth := 0
	i := pos
scan:
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]):
			i += 2
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth == 0 {
				break scan
			}
			depth--
			i++
		case c <= ' ' || c == 0x7f:
			break scan
		default:
			i++
		}
	}
	if depth != 0 {
		return 0, 0, 0, false
	}
	return pos, i, i, true
}

// parseLinkTitle parses a quoted [link title] starting at s[pos].
// Titles may span lines but not blank lines.
//
// [link title]: https://spec.commonmark.org/0.30/#link-title
func parseLinkTitle(s []byte, pos int) (start, end, newPos int, ok bool) {
	if pos >= len(s) {
		return 0, 0, 0, false
	}
	opener := s[pos]
	closer := opener
	switch opener {
	case '"', '\'':
	case '(':
		closer = ')'
	default:
		return 0, 0, 0, false
	}
	i := pos + 1
	for i < len(s) {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]):
			i += 2
		case c == closer:
			return pos + 1, i, i + 1, true
		case c == '(' && opener == '(':
			return 0, 0, 0, false
		case c == '\n':
			// A blank line would have ended the enclosing paragraph,
			// so it cannot appear inside a title.
			j := skipSpacesAndTabs(s, i+1)
			if j < len(s) && s[j] == '\n' {
				return 0, 0, 0, false
			}
			i++
		default:
			i++
		}
	}
	return 0, 0, 0, false
}

func skipSpacesAndTabs(s []byte, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

// skipLinkWhitespace skips spaces, tabs,
// and at most maxNewlines line endings.
func skipLinkWhitespace(s []byte, pos, maxNewlines int) int {
	newlines := 0
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t':
			pos++
		case '\n':
			if newlines >= maxNewlines {
				return pos
			}
			newlines++
			pos++
		default:
			return pos
		}
	}
	return pos
}

// resolveEscapes expands backslash escapes and character references,
// returning s itself when nothing needs expanding.
func resolveEscapes(s []byte) []byte {
	if bytes.IndexByte(s, '\\') < 0 && bytes.IndexByte(s, '&') < 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
				out = append(out, s[i+1])
				i += 2
				continue
			}
			out = append(out, '\\')
			i++
		case '&':
			if expansion, end, ok := scanCharacterReference(s, i); ok {
				out = append(out, expansion...)
				i = end
				continue
			}
			out = append(out, '&')
			i++
		default:
			out = append(out, s[i])
			i++
		}
	}
	return out
}

// scanCharacterReference recognizes a named or numeric character
// reference starting at the '&' at s[pos]. It returns the expansion
// and the position just past the terminating semicolon.
func scanCharacterReference(s []byte, pos int) (expansion []byte, end int, ok bool) {
	i := pos + 1
	if i >= len(s) {
		return nil, 0, false
	}
	if s[i] == '#' {
		i++
		hex := false
		maxDigits := entity.MaxDecimalDigits
		if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
			hex = true
			maxDigits = entity.MaxHexDigits
			i++
		}
		digitStart := i
		for i < len(s) && i-digitStart <= maxDigits && s[i] != ';' {
			i++
		}
		if i >= len(s) || s[i] != ';' {
			return nil, 0, false
		}
		r, ok := entity.DecodeNumeric(s[digitStart:i], hex)
		if !ok {
			return nil, 0, false
		}
		var buf [4]byte
		n := copy(buf[:], string(r))
		return buf[:n], i + 1, true
	}

	if !isASCIILetter(s[i]) {
		return nil, 0, false
	}
	nameStart := i
	for i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i])) {
		i++
	}
	if i >= len(s) || s[i] != ';' {
		return nil, 0, false
	}
	expanded, known := entity.DecodeNamed(s[nameStart:i])
	if !known {
		return nil, 0, false
	}
	return []byte(expanded), i + 1, true
}
