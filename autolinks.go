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

import "strings"

// parseAngleAutolink recognizes an [autolink]:
// an absolute URI or an email address between angle brackets.
//
// [autolink]: https://spec.commonmark.org/0.30/#autolinks
func (s *inlineState) parseAngleAutolink() bool {
	src, i := s.src, s.i
	if i+1 >= len(src) {
		return false
	}
	end, mailto, ok := scanAutolinkBody(src, i+1)
	if !ok {
		return false
	}
	s.flushText(i)
	text := src[i+1 : end]
	var data SpanData
	if mailto {
		data.Destination = append([]byte("mailto:"), text...)
	} else {
		data.Destination = text
	}
	s.nodes = append(s.nodes, &inlineNode{
		kind: nodeSpan,
		span: LinkKind,
		data: data,
		children: []*inlineNode{
			{kind: nodeText, start: i + 1, end: end},
		},
	})
	s.i = end + 1
	s.textStart = s.i
	return true
}

// scanAutolinkBody scans an autolink's interior starting just past
// the '<', returning the index of the closing '>'.
func scanAutolinkBody(src []byte, pos int) (end int, mailto, ok bool) {
	// Absolute URI: a 2-32 character scheme, then ':',
	// then anything but whitespace, controls, '<', and '>'.
	if isASCIILetter(src[pos]) {
		k := pos + 1
		for k < len(src) && k-pos < 32 &&
			(isASCIILetter(src[k]) || isASCIIDigit(src[k]) || src[k] == '+' || src[k] == '-' || src[k] == '.') {
			k++
		}
		if k-pos >= 2 && k < len(src) && src[k] == ':' {
			m := k + 1
			for m < len(src) && src[m] > ' ' && src[m] != 0x7f && src[m] != '<' && src[m] != '>' {
				m++
			}
			if m < len(src) && src[m] == '>' {
				return m, false, true
			}
		}
	}
	if end, ok := scanAutolinkEmail(src, pos); ok {
		return end, true, true
	}
	return 0, false, false
}

func scanAutolinkEmail(src []byte, pos int) (end int, ok bool) {
	i := pos
	for i < len(src) && isEmailLocalChar(src[i]) {
		i++
	}
	if i == pos || i >= len(src) || src[i] != '@' {
		return 0, false
	}
	i++
	for {
		labelLen := 0
		for i < len(src) && (isASCIILetter(src[i]) || isASCIIDigit(src[i]) || src[i] == '-') {
			if labelLen == 0 && src[i] == '-' {
				return 0, false
			}
			labelLen++
			i++
		}
		if labelLen == 0 || labelLen > 63 || src[i-1] == '-' {
			return 0, false
		}
		if i < len(src) && src[i] == '.' {
			i++
			continue
		}
		break
	}
	if i < len(src) && src[i] == '>' {
		return i, true
	}
	return 0, false
}

func isEmailLocalChar(c byte) bool {
	return isASCIILetter(c) || isASCIIDigit(c) ||
		strings.IndexByte(".!#$%&'*+/=?^_`{|}~-", c) >= 0
}

// The permissive autolinks below implement GitHub-style recognition
// of bare URLs, www. domains, and email addresses in ordinary text.
// Each is triggered from the scan loop by a cheap single byte
// (':', '.', or '@') and validated by looking backward
// no further than the pending text run.

var permissiveSchemes = []string{"http", "https", "ftp"}

// parseURLAutolink recognizes scheme://... with s.i at the ':'.
func (s *inlineState) parseURLAutolink() bool {
	src, i := s.src, s.i
	if !hasBytePrefix(src[i:], "://") {
		return false
	}
	start := -1
	for _, scheme := range permissiveSchemes {
		st := i - len(scheme)
		if st >= s.textStart && hasCaseInsensitiveBytePrefix(src[st:i], scheme) && len(scheme) == i-st {
			if st == 0 || !isASCIILetter(src[st-1]) && !isASCIIDigit(src[st-1]) {
				start = st
				break
			}
		}
	}
	if start < 0 {
		return false
	}
	j := i + 3
	for j < len(src) && src[j] > ' ' && src[j] != '<' {
		j++
	}
	end := trimAutolinkEnd(src, start, j)
	if end <= i+3 {
		return false
	}
	s.emitPermissiveLink(start, end, nil)
	return true
}

// parseWWWAutolink recognizes www.domain... with s.i at the '.'.
func (s *inlineState) parseWWWAutolink() bool {
	src, i := s.src, s.i
	start := i - 3
	if start < s.textStart || !hasCaseInsensitiveBytePrefix(src[start:], "www") {
		return false
	}
	if start > 0 && (isASCIILetter(src[start-1]) || isASCIIDigit(src[start-1]) || src[start-1] == '.') {
		return false
	}
	if i+1 >= len(src) || src[i+1] <= ' ' || src[i+1] == '.' {
		return false
	}
	j := i + 1
	for j < len(src) && src[j] > ' ' && src[j] != '<' {
		j++
	}
	end := trimAutolinkEnd(src, start, j)
	if end <= i+1 {
		return false
	}
	s.emitPermissiveLink(start, end, []byte("http://"))
	return true
}

// parseEmailAutolink recognizes local@domain with s.i at the '@'.
func (s *inlineState) parseEmailAutolink() bool {
	src, i := s.src, s.i
	start := i
	for start > s.textStart && isPermissiveEmailChar(src[start-1]) {
		start--
	}
	if start == i {
		return false
	}
	if start > 0 && (isASCIILetter(src[start-1]) || isASCIIDigit(src[start-1])) {
		return false
	}
	j := i + 1
	dots := 0
	for j < len(src) && (isASCIILetter(src[j]) || isASCIIDigit(src[j]) || src[j] == '-' || src[j] == '_' || src[j] == '.') {
		if src[j] == '.' {
			dots++
		}
		j++
	}
	for j > i+1 && (src[j-1] == '.' || src[j-1] == '-' || src[j-1] == '_') {
		if src[j-1] == '.' {
			dots--
		}
		j--
	}
	if j == i+1 || dots < 1 {
		return false
	}
	s.emitPermissiveLink(start, j, []byte("mailto:"))
	return true
}

func isPermissiveEmailChar(c byte) bool {
	return isASCIILetter(c) || isASCIIDigit(c) ||
		c == '.' || c == '-' || c == '_' || c == '+'
}

// trimAutolinkEnd backs off trailing punctuation, unbalanced closing
// parentheses, and trailing entity-like references.
func trimAutolinkEnd(src []byte, start, end int) int {
	for end > start {
		c := src[end-1]
		switch {
		case c == ')':
			opens, closes := 0, 0
			for k := start; k < end; k++ {
				switch src[k] {
				case '(':
					opens++
				case ')':
					closes++
				}
			}
			if closes <= opens {
				return end
			}
			end--
		case c == ';':
			k := end - 1
			for k > start && (isASCIILetter(src[k-1]) || isASCIIDigit(src[k-1])) {
				k--
			}
			if k > start && src[k-1] == '&' {
				end = k - 1
			} else {
				end--
			}
		case strings.IndexByte("?!.,:*_~'\"", c) >= 0:
			end--
		default:
			return end
		}
	}
	return end
}

func (s *inlineState) emitPermissiveLink(start, end int, destPrefix []byte) {
	s.flushText(start)
	text := s.src[start:end]
	dest := text
	if destPrefix != nil {
		dest = append(append([]byte(nil), destPrefix...), text...)
	}
	s.nodes = append(s.nodes, &inlineNode{
		kind: nodeSpan,
		span: LinkKind,
		data: SpanData{Destination: dest},
		children: []*inlineNode{
			{kind: nodeText, start: start, end: end},
		},
	})
	s.i = end
	s.textStart = end
}
