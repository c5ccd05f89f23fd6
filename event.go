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

import "fmt"

// BlockKind identifies a structural element of a Markdown document.
type BlockKind uint16

const (
	DocumentKind BlockKind = 1 + iota
	BlockQuoteKind
	ListKind
	ListItemKind
	ParagraphKind
	ATXHeadingKind
	SetextHeadingKind
	IndentedCodeBlockKind
	FencedCodeBlockKind
	ThematicBreakKind
	HTMLBlockKind
	TableKind
	TableRowKind
	TableCellKind
)

// String returns the name of the block kind.
func (kind BlockKind) String() string {
	switch kind {
	case DocumentKind:
		return "Document"
	case BlockQuoteKind:
		return "BlockQuote"
	case ListKind:
		return "List"
	case ListItemKind:
		return "ListItem"
	case ParagraphKind:
		return "Paragraph"
	case ATXHeadingKind:
		return "ATXHeading"
	case SetextHeadingKind:
		return "SetextHeading"
	case IndentedCodeBlockKind:
		return "IndentedCodeBlock"
	case FencedCodeBlockKind:
		return "FencedCodeBlock"
	case ThematicBreakKind:
		return "ThematicBreak"
	case HTMLBlockKind:
		return "HTMLBlock"
	case TableKind:
		return "Table"
	case TableRowKind:
		return "TableRow"
	case TableCellKind:
		return "TableCell"
	default:
		return fmt.Sprintf("BlockKind(%d)", uint16(kind))
	}
}

// IsContainer reports whether blocks of this kind hold other blocks
// rather than inline content.
func (kind BlockKind) IsContainer() bool {
	switch kind {
	case DocumentKind, BlockQuoteKind, ListKind, ListItemKind, TableKind, TableRowKind:
		return true
	default:
		return false
	}
}

// IsHeading reports whether the kind is one of the two heading forms.
func (kind BlockKind) IsHeading() bool {
	return kind == ATXHeadingKind || kind == SetextHeadingKind
}

// IsCodeBlock reports whether the kind is one of the two code block forms.
func (kind BlockKind) IsCodeBlock() bool {
	return kind == IndentedCodeBlockKind || kind == FencedCodeBlockKind
}

// SpanKind identifies an inline element that wraps other inline content.
type SpanKind uint16

const (
	EmphasisKind SpanKind = 1 + iota
	StrongKind
	StrikethroughKind
	LinkKind
	ImageKind
	CodeSpanKind
)

// String returns the name of the span kind.
func (kind SpanKind) String() string {
	switch kind {
	case EmphasisKind:
		return "Emphasis"
	case StrongKind:
		return "Strong"
	case StrikethroughKind:
		return "Strikethrough"
	case LinkKind:
		return "Link"
	case ImageKind:
		return "Image"
	case CodeSpanKind:
		return "CodeSpan"
	default:
		return fmt.Sprintf("SpanKind(%d)", uint16(kind))
	}
}

// TextKind identifies how a run of text should be interpreted by a consumer.
type TextKind uint16

const (
	// TextNormal is ordinary textual content.
	// Entity and numeric character references have already been expanded.
	TextNormal TextKind = 1 + iota
	// TextCode is the verbatim content of a code span or code block.
	TextCode
	// TextHTML is raw HTML passed through without interpretation.
	TextHTML
	// TextSoftBreak marks a soft line break between two lines of a span.
	TextSoftBreak
	// TextHardBreak marks a hard line break.
	TextHardBreak
)

// String returns the name of the text kind.
func (kind TextKind) String() string {
	switch kind {
	case TextNormal:
		return "Normal"
	case TextCode:
		return "Code"
	case TextHTML:
		return "HTML"
	case TextSoftBreak:
		return "SoftBreak"
	case TextHardBreak:
		return "HardBreak"
	default:
		return fmt.Sprintf("TextKind(%d)", uint16(kind))
	}
}

// Alignment is the column alignment of a table cell.
type Alignment uint8

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// BlockData carries the kind-specific attributes of a block.
// Only the fields relevant to the block's kind are meaningful.
type BlockData struct {
	// Level is the heading level, 1 through 6.
	Level int

	// FenceChar is '`' or '~' for fenced code blocks and zero otherwise.
	FenceChar byte
	// Info is the fence info string with backslash escapes and
	// character references resolved. Nil for indented code blocks.
	Info []byte

	// Ordered reports whether a list uses ordinal markers.
	Ordered bool
	// Start is the ordinal of the first item of an ordered list.
	Start int
	// Delim is '.' or ')' for ordered lists.
	Delim byte
	// Bullet is '-', '+', or '*' for bullet lists.
	Bullet byte
	// Tight reports whether the list renders without paragraph wrapping.
	Tight bool

	// Task reports whether a list item carries a task checkbox.
	Task bool
	// Checked reports whether the task checkbox is checked.
	Checked bool

	// Header reports whether a table row or cell belongs to the header.
	Header bool
	// Align is the alignment of a table cell.
	Align Alignment
	// Aligns holds the per-column alignments of a table.
	Aligns []Alignment
}

// SpanData carries the kind-specific attributes of an inline span.
type SpanData struct {
	// Destination is the resolved link or image destination.
	Destination []byte
	// Title is the link or image title.
	Title []byte
	// TitlePresent distinguishes an empty title from a missing one.
	TitlePresent bool
}

// A Handler consumes the event sequence of one parse in document order.
//
// Any byte slice passed to a Handler method borrows from the parser's
// buffers: it must not be mutated and must not be retained after the
// method returns. Returning a non-nil error aborts the parse; Parse
// returns that error unchanged.
type Handler interface {
	BlockStart(kind BlockKind, data *BlockData) error
	BlockEnd(kind BlockKind) error
	SpanStart(kind SpanKind, data *SpanData) error
	SpanEnd(kind SpanKind) error
	Text(kind TextKind, text []byte) error
}
