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
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

// RenderHTML parses source as Markdown and writes its HTML rendering
// to w. opts may be nil for strict CommonMark.
func RenderHTML(w io.Writer, source []byte, opts *Options) error {
	r := new(HTMLRenderer)
	if err := Parse(source, opts, r); err != nil {
		return err
	}
	if _, err := w.Write(r.Bytes()); err != nil {
		return fmt.Errorf("render markdown to html: %w", err)
	}
	return nil
}

// AppendHTML parses source as Markdown and appends its HTML rendering
// to dst, returning the extended buffer. opts may be nil for strict
// CommonMark.
func AppendHTML(dst []byte, source []byte, opts *Options) []byte {
	r := &HTMLRenderer{buf: dst}
	// An HTMLRenderer's methods never return an error.
	Parse(source, opts, r)
	return r.buf
}

// An HTMLRenderer is a [Handler] that renders the events it receives
// as HTML into an in-memory buffer. The zero value is ready to use.
//
// The layout of the output (tag placement and newlines) follows that
// of the reference CommonMark renderer.
type HTMLRenderer struct {
	// FilterTag, if not nil, reports whether raw HTML tags with the
	// given lowercase name may pass through to the output. Tags the
	// filter rejects have their opening angle bracket escaped, which
	// disarms them without losing their text.
	FilterTag func(name string) bool

	buf    []byte
	blocks []renderFrame

	// alt is the image nesting depth. While positive, events
	// contribute only to the alt attribute of the outermost image.
	alt         int
	altTitle    string
	altHasTitle bool
}

// A renderFrame mirrors one open block during rendering.
type renderFrame struct {
	kind     BlockKind
	level    int
	tight    bool
	ordered  bool
	task     bool
	checked  bool
	header   bool
	bodyOpen bool
}

// Bytes returns the HTML rendered so far.
// The slice is valid until the next event or call to [HTMLRenderer.Reset].
func (r *HTMLRenderer) Bytes() []byte {
	return r.buf
}

// Reset clears the renderer's buffer and state, retaining capacity.
func (r *HTMLRenderer) Reset() {
	r.buf = r.buf[:0]
	r.blocks = r.blocks[:0]
	r.alt = 0
}

// cr ensures the output ends with a newline
// before a block-level tag is written.
func (r *HTMLRenderer) cr() {
	if n := len(r.buf); n > 0 && r.buf[n-1] != '\n' {
		r.buf = append(r.buf, '\n')
	}
}

func (r *HTMLRenderer) parent() *renderFrame {
	if len(r.blocks) == 0 {
		return nil
	}
	return &r.blocks[len(r.blocks)-1]
}

var headingAtoms = [...]atom.Atom{
	1: atom.H1,
	2: atom.H2,
	3: atom.H3,
	4: atom.H4,
	5: atom.H5,
	6: atom.H6,
}

// BlockStart implements [Handler].
func (r *HTMLRenderer) BlockStart(kind BlockKind, data *BlockData) error {
	frame := renderFrame{kind: kind}
	switch kind {
	case ParagraphKind:
		parent := r.parent()
		if parent != nil && parent.kind == ListItemKind && parent.tight {
			// Tight list items render their paragraphs' contents bare.
			frame.tight = true
		} else {
			r.cr()
			r.buf = append(r.buf, "<p>"...)
		}
		if parent != nil && parent.task {
			parent.task = false
			r.buf = append(r.buf, `<input type="checkbox" disabled=""`...)
			if parent.checked {
				r.buf = append(r.buf, ` checked=""`...)
			}
			r.buf = append(r.buf, "> "...)
		}
	case ATXHeadingKind, SetextHeadingKind:
		frame.level = data.Level
		r.cr()
		r.buf = append(r.buf, '<')
		r.buf = append(r.buf, headingAtoms[data.Level].String()...)
		r.buf = append(r.buf, '>')
	case ThematicBreakKind:
		r.cr()
		r.buf = append(r.buf, "<hr />\n"...)
	case IndentedCodeBlockKind, FencedCodeBlockKind:
		r.cr()
		r.buf = append(r.buf, "<pre><code"...)
		if words := bytes.Fields(data.Info); len(words) > 0 {
			r.buf = append(r.buf, ` class="language-`...)
			r.buf = escapeHTML(r.buf, words[0])
			r.buf = append(r.buf, '"')
		}
		r.buf = append(r.buf, '>')
	case BlockQuoteKind:
		r.cr()
		r.buf = append(r.buf, "<blockquote>\n"...)
	case ListKind:
		frame.tight = data.Tight
		frame.ordered = data.Ordered
		r.cr()
		if data.Ordered {
			r.buf = append(r.buf, "<ol"...)
			if data.Start != 1 {
				r.buf = append(r.buf, ` start="`...)
				r.buf = strconv.AppendInt(r.buf, int64(data.Start), 10)
				r.buf = append(r.buf, '"')
			}
			r.buf = append(r.buf, ">\n"...)
		} else {
			r.buf = append(r.buf, "<ul>\n"...)
		}
	case ListItemKind:
		if parent := r.parent(); parent != nil {
			frame.tight = parent.tight
		}
		frame.task = data.Task
		frame.checked = data.Checked
		r.cr()
		r.buf = append(r.buf, "<li>"...)
	case HTMLBlockKind:
		r.cr()
	case TableKind:
		r.cr()
		r.buf = append(r.buf, "<table>"...)
	case TableRowKind:
		frame.header = data.Header
		table := r.parent()
		if data.Header {
			r.cr()
			r.buf = append(r.buf, "<thead>"...)
		} else if table != nil && !table.bodyOpen {
			table.bodyOpen = true
			r.cr()
			r.buf = append(r.buf, "<tbody>"...)
		}
		r.cr()
		r.buf = append(r.buf, "<tr>"...)
	case TableCellKind:
		frame.header = data.Header
		r.cr()
		if data.Header {
			r.buf = append(r.buf, "<th"...)
		} else {
			r.buf = append(r.buf, "<td"...)
		}
		switch data.Align {
		case AlignLeft:
			r.buf = append(r.buf, ` align="left"`...)
		case AlignCenter:
			r.buf = append(r.buf, ` align="center"`...)
		case AlignRight:
			r.buf = append(r.buf, ` align="right"`...)
		}
		r.buf = append(r.buf, '>')
	}
	r.blocks = append(r.blocks, frame)
	return nil
}

// BlockEnd implements [Handler].
func (r *HTMLRenderer) BlockEnd(kind BlockKind) error {
	var frame renderFrame
	if n := len(r.blocks); n > 0 {
		frame = r.blocks[n-1]
		r.blocks = r.blocks[:n-1]
	}
	switch kind {
	case ParagraphKind:
		if !frame.tight {
			r.buf = append(r.buf, "</p>\n"...)
		}
	case ATXHeadingKind, SetextHeadingKind:
		r.buf = append(r.buf, "</"...)
		r.buf = append(r.buf, headingAtoms[frame.level].String()...)
		r.buf = append(r.buf, ">\n"...)
	case IndentedCodeBlockKind, FencedCodeBlockKind:
		r.buf = append(r.buf, "</code></pre>\n"...)
	case BlockQuoteKind:
		r.cr()
		r.buf = append(r.buf, "</blockquote>\n"...)
	case ListKind:
		r.cr()
		if frame.ordered {
			r.buf = append(r.buf, "</ol>\n"...)
		} else {
			r.buf = append(r.buf, "</ul>\n"...)
		}
	case ListItemKind:
		r.buf = append(r.buf, "</li>\n"...)
	case HTMLBlockKind:
		r.cr()
	case TableKind:
		if frame.bodyOpen {
			r.cr()
			r.buf = append(r.buf, "</tbody>"...)
		}
		r.cr()
		r.buf = append(r.buf, "</table>\n"...)
	case TableRowKind:
		r.cr()
		r.buf = append(r.buf, "</tr>"...)
		if frame.header {
			r.cr()
			r.buf = append(r.buf, "</thead>"...)
		}
	case TableCellKind:
		if frame.header {
			r.buf = append(r.buf, "</th>"...)
		} else {
			r.buf = append(r.buf, "</td>"...)
		}
	}
	return nil
}

// SpanStart implements [Handler].
func (r *HTMLRenderer) SpanStart(kind SpanKind, data *SpanData) error {
	if kind == ImageKind {
		if r.alt == 0 {
			r.altTitle = string(data.Title)
			r.altHasTitle = data.TitlePresent
			r.buf = append(r.buf, `<img src="`...)
			r.buf = escapeHTML(r.buf, appendNormalizedURI(nil, data.Destination))
			r.buf = append(r.buf, `" alt="`...)
		}
		r.alt++
		return nil
	}
	if r.alt > 0 {
		return nil
	}
	switch kind {
	case EmphasisKind:
		r.buf = append(r.buf, "<em>"...)
	case StrongKind:
		r.buf = append(r.buf, "<strong>"...)
	case StrikethroughKind:
		r.buf = append(r.buf, "<del>"...)
	case CodeSpanKind:
		r.buf = append(r.buf, "<code>"...)
	case LinkKind:
		r.buf = append(r.buf, `<a href="`...)
		r.buf = escapeHTML(r.buf, appendNormalizedURI(nil, data.Destination))
		r.buf = append(r.buf, '"')
		if data.TitlePresent {
			r.buf = append(r.buf, ` title="`...)
			r.buf = escapeHTML(r.buf, data.Title)
			r.buf = append(r.buf, '"')
		}
		r.buf = append(r.buf, '>')
	}
	return nil
}

// SpanEnd implements [Handler].
func (r *HTMLRenderer) SpanEnd(kind SpanKind) error {
	if kind == ImageKind {
		r.alt--
		if r.alt == 0 {
			r.buf = append(r.buf, '"')
			if r.altHasTitle {
				r.buf = append(r.buf, ` title="`...)
				r.buf = escapeHTML(r.buf, []byte(r.altTitle))
				r.buf = append(r.buf, '"')
			}
			r.buf = append(r.buf, " />"...)
		}
		return nil
	}
	if r.alt > 0 {
		return nil
	}
	switch kind {
	case EmphasisKind:
		r.buf = append(r.buf, "</em>"...)
	case StrongKind:
		r.buf = append(r.buf, "</strong>"...)
	case StrikethroughKind:
		r.buf = append(r.buf, "</del>"...)
	case CodeSpanKind:
		r.buf = append(r.buf, "</code>"...)
	case LinkKind:
		r.buf = append(r.buf, "</a>"...)
	}
	return nil
}

// Text implements [Handler].
func (r *HTMLRenderer) Text(kind TextKind, text []byte) error {
	if r.alt > 0 {
		// Inside an image, events contribute plain text
		// to the alt attribute.
		switch kind {
		case TextNormal, TextCode:
			r.buf = escapeHTML(r.buf, text)
		case TextSoftBreak, TextHardBreak:
			r.buf = append(r.buf, ' ')
		}
		return nil
	}
	switch kind {
	case TextNormal, TextCode:
		r.buf = escapeHTML(r.buf, text)
	case TextHTML:
		r.appendRawHTML(text)
	case TextSoftBreak:
		r.buf = append(r.buf, '\n')
	case TextHardBreak:
		r.buf = append(r.buf, "<br />\n"...)
	}
	return nil
}

// appendRawHTML writes a raw HTML chunk,
// escaping the tags that [HTMLRenderer.FilterTag] rejects.
func (r *HTMLRenderer) appendRawHTML(chunk []byte) {
	if r.FilterTag == nil {
		r.buf = append(r.buf, chunk...)
		return
	}
	for len(chunk) > 0 {
		lt := bytes.IndexByte(chunk, '<')
		if lt < 0 {
			r.buf = append(r.buf, chunk...)
			return
		}
		r.buf = append(r.buf, chunk[:lt]...)
		chunk = chunk[lt:]
		name := rawTagName(chunk)
		if name != "" && !r.FilterTag(name) {
			r.buf = append(r.buf, "&lt;"...)
		} else {
			r.buf = append(r.buf, '<')
		}
		chunk = chunk[1:]
	}
}

// rawTagName extracts the lowercase tag name of the open or closing
// tag starting at chunk[0] == '<', or "" if no tag starts there.
func rawTagName(chunk []byte) string {
	i := 1
	if i < len(chunk) && chunk[i] == '/' {
		i++
	}
	start := i
	var name []byte
	for i < len(chunk) && (isASCIILetter(chunk[i]) || chunk[i] == '-' || (i > start && isASCIIDigit(chunk[i]))) {
		name = append(name, toLowerASCII(chunk[i]))
		i++
	}
	return string(name)
}

func escapeHTML(dst []byte, src []byte) []byte {
	verbatim := 0 // index after last byte copied to dst
	for i, c := range src {
		switch c {
		case '"':
			dst = append(dst, src[verbatim:i]...)
			dst = append(dst, "&quot;"...)
			verbatim = i + 1
		case '&':
			dst = append(dst, src[verbatim:i]...)
			dst = append(dst, "&amp;"...)
			verbatim = i + 1
		case '<':
			dst = append(dst, src[verbatim:i]...)
			dst = append(dst, "&lt;"...)
			verbatim = i + 1
		case '>':
			dst = append(dst, src[verbatim:i]...)
			dst = append(dst, "&gt;"...)
			verbatim = i + 1
		}
	}
	return append(dst, src[verbatim:]...)
}

// appendNormalizedURI percent-encodes any bytes of a link destination
// that are not reserved or unreserved URI characters, leaving existing
// percent escapes intact. The result is suitable for an href or src
// attribute after HTML escaping.
func appendNormalizedURI(dst []byte, s []byte) []byte {
	// RFC 3986 reserved and unreserved characters.
	const safeSet = `;/?:@&=+$,-_.!~*'()#%`

	for i := 0; i < len(s); {
		c, size := utf8.DecodeRune(s[i:])
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				dst = append(dst, s[i:i+3]...)
				i += 3
				continue
			}
			dst = append(dst, "%25"...)
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || bytes.ContainsRune([]byte(safeSet), c):
			dst = append(dst, s[i:i+size]...)
		default:
			for _, b := range s[i : i+size] {
				dst = append(dst, '%', urlHexDigit(b>>4), urlHexDigit(b&0x0f))
			}
		}
		i += size
	}
	return dst
}

func isHex(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || '0' <= c && c <= '9'
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
