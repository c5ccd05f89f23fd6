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
	"strings"

	"golang.org/x/net/html/atom"
)

// scanHTMLTag recognizes [raw HTML] starting at the '<' at s[pos]:
// an open or closing tag, a comment, a processing instruction,
// a declaration, or a CDATA section.
// It returns the position just past the construct.
//
// [raw HTML]: https://spec.commonmark.org/0.30/#raw-html
func scanHTMLTag(s []byte, pos int) (end int, ok bool) {
	if pos >= len(s) || s[pos] != '<' {
		return 0, false
	}
	i := pos + 1
	if i >= len(s) {
		return 0, false
	}
	switch s[i] {
	case '?':
		// Processing instruction.
		idx := bytes.Index(s[i+1:], []byte("?>"))
		if idx < 0 {
			return 0, false
		}
		return i + 1 + idx + 2, true
	case '!':
		rest := s[i+1:]
		switch {
		case hasBytePrefix(rest, "--"):
			// Comment. The text may not begin with '>' or '->',
			// contain '--', or end with '-'.
			j := i + 3
			if hasBytePrefix(s[j:], ">") || hasBytePrefix(s[j:], "->") {
				return 0, false
			}
			idx := bytes.Index(s[j:], []byte("--"))
			if idx < 0 || j+idx+2 >= len(s) || s[j+idx+2] != '>' {
				return 0, false
			}
			return j + idx + 3, true
		case hasBytePrefix(rest, "[CDATA["):
			j := i + 1 + len("[CDATA[")
			idx := bytes.Index(s[j:], []byte("]]>"))
			if idx < 0 {
				return 0, false
			}
			return j + idx + 3, true
		case len(rest) > 0 && isASCIILetter(rest[0]):
			// Declaration.
			idx := bytes.IndexByte(rest, '>')
			if idx < 0 {
				return 0, false
			}
			return i + 1 + idx + 1, true
		default:
			return 0, false
		}
	case '/':
		return scanHTMLClosingTag(s, i)
	default:
		return scanHTMLOpenTag(s, i)
	}
}

// scanHTMLOpenTag parses an [open tag] sans the leading '<',
// with pos at the first character of the tag name.
//
// [open tag]: https://spec.commonmark.org/0.30/#open-tag
func scanHTMLOpenTag(s []byte, pos int) (end int, ok bool) {
	i, ok := scanHTMLTagName(s, pos)
	if !ok {
		return 0, false
	}
	for {
		beforeSpace := i
		i = skipTagWhitespace(s, i)
		if i >= len(s) {
			return 0, false
		}
		switch s[i] {
		case '/':
			if i+1 >= len(s) || s[i+1] != '>' {
				return 0, false
			}
			return i + 2, true
		case '>':
			return i + 1, true
		}
		if i == beforeSpace {
			return 0, false
		}
		i, ok = scanHTMLAttribute(s, i)
		if !ok {
			return 0, false
		}
	}
}

// scanHTMLClosingTag parses a [closing tag] sans the leading '<',
// with pos at the '/'.
//
// [closing tag]: https://spec.commonmark.org/0.30/#closing-tag
func scanHTMLClosingTag(s []byte, pos int) (end int, ok bool) {
	if pos >= len(s) || s[pos] != '/' {
		return 0, false
	}
	i, ok := scanHTMLTagName(s, pos+1)
	if !ok {
		return 0, false
	}
	i = skipTagWhitespace(s, i)
	if i >= len(s) || s[i] != '>' {
		return 0, false
	}
	return i + 1, true
}

func scanHTMLTagName(s []byte, pos int) (end int, ok bool) {
	if pos >= len(s) || !isASCIILetter(s[pos]) {
		return 0, false
	}
	i := pos + 1
	for i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || s[i] == '-') {
		i++
	}
	return i, true
}

func scanHTMLAttribute(s []byte, pos int) (end int, ok bool) {
	// Attribute name.
	if c := s[pos]; !isASCIILetter(c) && c != '_' && c != ':' {
		return 0, false
	}
	i := pos + 1
	for i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || strings.IndexByte("_.:-", s[i]) >= 0) {
		i++
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equals sign,
	// since that would cause future attributes to fail.
	j := skipTagWhitespace(s, i)
	if j >= len(s) || s[j] != '=' {
		return i, true
	}
	j = skipTagWhitespace(s, j+1)
	if j >= len(s) {
		return 0, false
	}
	switch c := s[j]; {
	case c == '\'' || c == '"':
		idx := bytes.IndexByte(s[j+1:], c)
		if idx < 0 {
			return 0, false
		}
		return j + 1 + idx + 1, true
	case isUnquotedAttributeValueChar(c):
		j++
		for j < len(s) && isUnquotedAttributeValueChar(s[j]) {
			j++
		}
		return j, true
	default:
		return 0, false
	}
}

func skipTagWhitespace(s []byte, pos int) int {
	for pos < len(s) && isSpaceTabOrLineEnding(s[pos]) {
		pos++
	}
	return pos
}

func isUnquotedAttributeValueChar(c byte) bool {
	return !isSpaceTabOrLineEnding(c) && strings.IndexByte("\"'=<>`", c) < 0
}

// htmlBlockConditions is the ordered set of [HTML block]
// start and end conditions.
// The index into this slice is one less than the block type number.
//
// [HTML block]: https://spec.commonmark.org/0.30/#html-blocks
var htmlBlockConditions = []struct {
	startCondition        func(line []byte) bool
	endCondition          func(line []byte) bool
	canInterruptParagraph bool
}{
	{
		startCondition: func(line []byte) bool {
			for _, starter := range htmlBlockStarters1 {
				if hasCaseInsensitiveBytePrefix(line, starter) {
					rest := line[len(starter):]
					if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' {
						return true
					}
				}
			}
			return false
		},
		endCondition: func(line []byte) bool {
			for _, ender := range htmlBlockEnders1 {
				if caseInsensitiveContains(line, ender) {
					return true
				}
			}
			return false
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return hasBytePrefix(line, "<!--")
		},
		endCondition: func(line []byte) bool {
			return contains(line, "-->")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return hasBytePrefix(line, "<?")
		},
		endCondition: func(line []byte) bool {
			return contains(line, "?>")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return hasBytePrefix(line, "<!") && len(line) >= 3 && isASCIILetter(line[2])
		},
		endCondition: func(line []byte) bool {
			return contains(line, ">")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return hasBytePrefix(line, "<![CDATA[")
		},
		endCondition: func(line []byte) bool {
			return contains(line, "]]>")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			switch {
			case hasBytePrefix(line, "</"):
				line = line[2:]
			case hasBytePrefix(line, "<"):
				line = line[1:]
			default:
				return false
			}
			for _, starter := range htmlBlockStarters6 {
				if hasCaseInsensitiveBytePrefix(line, starter) {
					rest := line[len(starter):]
					if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' || hasBytePrefix(rest, "/>") {
						return true
					}
				}
			}
			return false
		},
		endCondition:          isBlankLine,
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			if !hasBytePrefix(line, "<") {
				return false
			}
			var end int
			var ok bool
			if hasBytePrefix(line, "</") {
				end, ok = scanHTMLClosingTag(line, 1)
			} else {
				end, ok = scanHTMLOpenTag(line, 1)
			}
			if !ok {
				return false
			}
			return skipTagWhitespace(line, end) == len(line)
		},
		endCondition:          isBlankLine,
		canInterruptParagraph: false,
	},
}

var (
	htmlBlockStarters1 = []string{
		"<pre",
		"<script",
		"<style",
		"<textarea",
	}
	htmlBlockEnders1 = []string{
		"</pre>",
		"</script>",
		"</style>",
		"</textarea>",
	}

	htmlBlockStarters6 = []string{
		atom.Address.String(),
		atom.Article.String(),
		atom.Aside.String(),
		atom.Base.String(),
		atom.Basefont.String(),
		atom.Blockquote.String(),
		atom.Body.String(),
		atom.Caption.String(),
		atom.Center.String(),
		atom.Col.String(),
		atom.Colgroup.String(),
		atom.Dd.String(),
		atom.Details.String(),
		atom.Dialog.String(),
		atom.Dir.String(),
		atom.Div.String(),
		atom.Dl.String(),
		atom.Dt.String(),
		atom.Fieldset.String(),
		atom.Figcaption.String(),
		atom.Figure.String(),
		atom.Footer.String(),
		atom.Form.String(),
		atom.Frame.String(),
		atom.Frameset.String(),
		atom.H1.String(),
		atom.H2.String(),
		atom.H3.String(),
		atom.H4.String(),
		atom.H5.String(),
		atom.H6.String(),
		atom.Head.String(),
		atom.Header.String(),
		atom.Hr.String(),
		atom.Html.String(),
		atom.Iframe.String(),
		atom.Legend.String(),
		atom.Li.String(),
		atom.Link.String(),
		atom.Main.String(),
		atom.Menu.String(),
		atom.Menuitem.String(),
		atom.Nav.String(),
		atom.Noframes.String(),
		atom.Ol.String(),
		atom.Optgroup.String(),
		atom.Option.String(),
		atom.P.String(),
		atom.Param.String(),
		atom.Section.String(),
		atom.Source.String(),
		atom.Summary.String(),
		atom.Table.String(),
		atom.Tbody.String(),
		atom.Td.String(),
		atom.Tfoot.String(),
		atom.Th.String(),
		atom.Thead.String(),
		atom.Title.String(),
		atom.Tr.String(),
		atom.Track.String(),
		atom.Ul.String(),
	}
)
