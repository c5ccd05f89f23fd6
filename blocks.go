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

import "bytes"

// A contentLine is one line of a leaf block's content,
// as a span of the source.
// spaces counts synthetic leading spaces
// left over from a partially consumed tab.
type contentLine struct {
	start  int
	end    int
	spaces int
}

// A blockEvent is one entry of the document skeleton built by the
// block phase. Enter events carry the block's attributes and content;
// the content is either raw lines (code and HTML blocks) or assembled
// inline text (paragraphs, headings, and table cells).
type blockEvent struct {
	enter bool
	kind  BlockKind
	data  BlockData
	lines []contentLine
	text  []byte
}

// An openBlock is one entry of the open block stack
// during the block phase.
type openBlock struct {
	kind      BlockKind
	event     *blockEvent
	startLine int

	// hasContent reports whether any child block has been added.
	hasContent bool

	// sawBlank marks a list that has seen a blank line
	// not yet followed by further content.
	sawBlank bool
	// loose marks a list whose items are separated by blank lines.
	loose bool

	// contentIndent is the column a list item's content starts at.
	contentIndent int

	fenceChar   byte
	fenceLength int
	fenceIndent int

	// htmlType is the HTML block type, 1 through 7.
	htmlType int

	// paraJoined reports that the paragraph's lines have been joined
	// and link reference definitions extracted into paraText.
	paraJoined bool
	paraText   []byte
}

// blockParser assembles the block structure of a document,
// one line at a time.
type blockParser struct {
	source []byte
	opts   Options
	refs   referenceMap
	events []*blockEvent
	open   []*openBlock

	// Per-line cursor state.
	line            []byte
	lineStart       int
	lineNumber      int
	i               int
	col             int
	partialTab      bool
	nextNonspace    int
	nextNonspaceCol int
	indentWidth     int
	blank           bool
	matched         int
	allClosed       bool
}

const tabStop = 4

func newBlockParser(source []byte, opts Options) *blockParser {
	p := &blockParser{
		source: source,
		opts:   opts,
		refs:   make(referenceMap),
	}
	ev := &blockEvent{enter: true, kind: DocumentKind}
	p.events = append(p.events, ev)
	p.open = append(p.open, &openBlock{kind: DocumentKind, event: ev})
	return p
}

func (p *blockParser) tip() *openBlock {
	return p.open[len(p.open)-1]
}

// findNextNonspace records the position, expanded column,
// and indent of the next non-whitespace character on the line.
func (p *blockParser) findNextNonspace() {
	i, col := p.i, p.col
	for i < len(p.line) {
		switch p.line[i] {
		case ' ':
			i++
			col++
		case '\t':
			i++
			col += tabStop - col%tabStop
		default:
			p.blank = false
			p.nextNonspace = i
			p.nextNonspaceCol = col
			p.indentWidth = col - p.col
			return
		}
	}
	p.blank = true
	p.nextNonspace = i
	p.nextNonspaceCol = col
	p.indentWidth = col - p.col
}

// advanceOffset moves the cursor forward by count bytes,
// or by count columns if columns is true,
// expanding tabs against the current column.
// Stopping partway through a tab sets partialTab.
func (p *blockParser) advanceOffset(count int, columns bool) {
	for count > 0 && p.i < len(p.line) {
		if p.line[p.i] == '\t' {
			charsToTab := tabStop - p.col%tabStop
			if columns {
				p.partialTab = charsToTab > count
				advance := charsToTab
				if advance > count {
					advance = count
				}
				p.col += advance
				if !p.partialTab {
					p.i++
				}
				count -= advance
			} else {
				p.partialTab = false
				p.col += charsToTab
				p.i++
				count--
			}
		} else {
			p.partialTab = false
			p.col++
			p.i++
			count--
		}
	}
}

func (p *blockParser) advanceNextNonspace() {
	p.i = p.nextNonspace
	p.col = p.nextNonspaceCol
	p.partialTab = false
}

func (p *blockParser) indented() bool {
	return p.indentWidth >= 4
}

// contentLineHere captures the rest of the current line
// from the cursor as leaf content.
func (p *blockParser) contentLineHere() contentLine {
	cl := contentLine{
		start: p.lineStart + p.i,
		end:   p.lineStart + len(p.line),
	}
	if p.partialTab {
		cl.start++
		cl.spaces = tabStop - p.col%tabStop
	}
	return cl
}

func (p *blockParser) addLineTo(b *openBlock) {
	b.event.lines = append(b.event.lines, p.contentLineHere())
}

// Results of continuing an already open block on a new line.
const (
	continueMatched = iota
	continueNoMatch
	continueConsumed
)

func (p *blockParser) continueBlock(b *openBlock) int {
	switch b.kind {
	case DocumentKind, ListKind:
		return continueMatched
	case BlockQuoteKind:
		if !p.indented() && p.nextNonspace < len(p.line) && p.line[p.nextNonspace] == '>' {
			p.advanceNextNonspace()
			p.advanceOffset(1, false)
			if p.i < len(p.line) && isSpaceOrTab(p.line[p.i]) {
				p.advanceOffset(1, true)
			}
			return continueMatched
		}
		return continueNoMatch
	case ListItemKind:
		if p.blank {
			if !b.hasContent {
				return continueNoMatch
			}
			p.advanceNextNonspace()
			return continueMatched
		}
		if p.indentWidth >= b.contentIndent {
			p.advanceOffset(b.contentIndent, true)
			return continueMatched
		}
		return continueNoMatch
	case ParagraphKind:
		if p.blank {
			return continueNoMatch
		}
		return continueMatched
	case IndentedCodeBlockKind:
		switch {
		case p.indented():
			p.advanceOffset(4, true)
			return continueMatched
		case p.blank:
			p.advanceNextNonspace()
			return continueMatched
		default:
			return continueNoMatch
		}
	case FencedCodeBlockKind:
		if !p.indented() && p.nextNonspace < len(p.line) && p.line[p.nextNonspace] == b.fenceChar {
			run := 0
			for i := p.nextNonspace; i < len(p.line) && p.line[i] == b.fenceChar; i++ {
				run++
			}
			if run >= b.fenceLength && isBlankLine(p.line[p.nextNonspace+run:]) {
				p.finalizeTop()
				return continueConsumed
			}
		}
		// Strip up to the fence's indent from content lines.
		for i := b.fenceIndent; i > 0 && p.i < len(p.line) && isSpaceOrTab(p.line[p.i]); i-- {
			p.advanceOffset(1, true)
		}
		return continueMatched
	case HTMLBlockKind:
		if p.blank && (b.htmlType == 6 || b.htmlType == 7) {
			return continueNoMatch
		}
		return continueMatched
	default:
		return continueNoMatch
	}
}

// Results of attempting block starts on a line.
const (
	startNone = iota
	startContainer
	startLeaf
	startConsumed
)

// incorporateLine analyzes one line of input, line being the line
// without its terminator and lineStart its offset in the source.
func (p *blockParser) incorporateLine(lineStart int, line []byte, lineNumber int) {
	p.line = line
	p.lineStart = lineStart
	p.lineNumber = lineNumber
	p.i = 0
	p.col = 0
	p.partialTab = false

	// Phase 1: descend the open block stack,
	// matching each block's continuation condition.
	p.matched = 1
	container := p.open[0]
descent:
	for k := 1; k < len(p.open); k++ {
		b := p.open[k]
		p.findNextNonspace()
		switch p.continueBlock(b) {
		case continueMatched:
			container = b
			p.matched = k + 1
		case continueConsumed:
			// A closing code fence consumed the whole line.
			return
		case continueNoMatch:
			break descent
		}
	}
	p.allClosed = p.matched == len(p.open)

	// Phase 2: look for new block starts.
	consumed := false
	for {
		if k := container.kind; k != ParagraphKind && blockAcceptsLines(k) {
			break
		}
		p.findNextNonspace()
		res := p.tryStart(container)
		if res == startNone {
			p.advanceNextNonspace()
			break
		}
		container = p.tip()
		if res == startLeaf {
			break
		}
		if res == startConsumed {
			consumed = true
			break
		}
	}

	// Phase 3: add the remainder of the line to the deepest block.
	if !consumed {
		switch tip := p.tip(); {
		case !p.allClosed && !p.blank && tip.kind == ParagraphKind:
			// Lazy continuation.
			p.addLineTo(tip)
		default:
			p.closeUnmatched()
			container = p.tip()
			switch {
			case blockAcceptsLines(container.kind):
				p.addLineTo(container)
				if container.kind == HTMLBlockKind &&
					container.htmlType >= 1 && container.htmlType <= 5 &&
					htmlBlockConditions[container.htmlType-1].endCondition(p.line[p.i:]) {
					p.finalizeTop()
				}
			case p.i < len(p.line) && !p.blank:
				para := p.pushBlock(ParagraphKind, BlockData{})
				p.advanceNextNonspace()
				p.addLineTo(para)
			}
		}
	}

	// Blank lines make the enclosing lists candidates for looseness,
	// unless the blank is interior to a block's own content.
	if p.blank {
		tip := p.tip()
		interior := tip.kind == BlockQuoteKind ||
			tip.kind == FencedCodeBlockKind ||
			(tip.kind == ListItemKind && !tip.hasContent && tip.startLine == p.lineNumber)
		if !interior {
			for _, b := range p.open {
				if b.kind == ListKind {
					b.sawBlank = true
				}
			}
		}
	}
}

// tryStart attempts each block start condition in priority order.
// container is the deepest block the line has matched so far.
func (p *blockParser) tryStart(container *openBlock) int {
	rest := p.line[p.nextNonspace:]

	// Block quote.
	if !p.indented() && len(rest) > 0 && rest[0] == '>' {
		p.advanceNextNonspace()
		p.advanceOffset(1, false)
		if p.i < len(p.line) && isSpaceOrTab(p.line[p.i]) {
			p.advanceOffset(1, true)
		}
		p.closeUnmatched()
		p.pushBlock(BlockQuoteKind, BlockData{})
		return startContainer
	}

	// ATX heading.
	if !p.indented() {
		if level, content, ok := scanATXHeading(rest); ok {
			p.closeUnmatched()
			h := p.pushBlock(ATXHeadingKind, BlockData{Level: level})
			h.event.text = content
			p.finalizeTop()
			return startConsumed
		}
	}

	// Fenced code block.
	if !p.indented() && len(rest) > 0 && (rest[0] == '`' || rest[0] == '~') {
		marker := rest[0]
		run := 0
		for run < len(rest) && rest[run] == marker {
			run++
		}
		info := bytes.Trim(rest[run:], " \t")
		if run >= 3 && !(marker == '`' && bytes.IndexByte(info, '`') >= 0) {
			p.closeUnmatched()
			data := BlockData{FenceChar: marker}
			if len(info) > 0 {
				data.Info = resolveEscapes(info)
			}
			b := p.pushBlock(FencedCodeBlockKind, data)
			b.fenceChar = marker
			b.fenceLength = run
			b.fenceIndent = p.indentWidth
			return startConsumed
		}
	}

	// HTML block.
	if !p.opts.NoHTMLBlocks && !p.indented() && len(rest) > 0 && rest[0] == '<' {
		for i, cond := range htmlBlockConditions {
			if !cond.canInterruptParagraph && container.kind == ParagraphKind {
				continue
			}
			if cond.startCondition(rest) {
				p.closeUnmatched()
				b := p.pushBlock(HTMLBlockKind, BlockData{})
				b.htmlType = i + 1
				return startLeaf
			}
		}
	}

	// Setext heading underline.
	if !p.indented() && container.kind == ParagraphKind {
		if level, ok := scanSetextUnderline(rest); ok {
			p.closeUnmatched()
			if !container.paraJoined {
				container.paraText = extractReferenceDefinitions(p.refs, p.joinLines(container.event.lines))
				container.paraJoined = true
			}
			if len(container.paraText) > 0 {
				container.event.kind = SetextHeadingKind
				container.event.data.Level = level
				container.event.text = rstripped(container.paraText)
				p.popWithoutFinalize()
				p.events = append(p.events, &blockEvent{kind: SetextHeadingKind})
				return startConsumed
			}
			// The paragraph held only link reference definitions;
			// let the underline start some other block.
		}
	}

	// Thematic break.
	if !p.indented() && scanThematicBreak(rest) {
		p.closeUnmatched()
		p.pushBlock(ThematicBreakKind, BlockData{})
		p.finalizeTop()
		return startConsumed
	}

	// List item.
	if !p.indented() || container.kind == ListKind {
		if d, ok := p.parseListMarker(container); ok {
			p.closeUnmatched()
			p.startListItem(d)
			return startContainer
		}
	}

	// Indented code block.
	if p.indented() && p.tip().kind != ParagraphKind && !p.blank {
		p.advanceOffset(4, true)
		p.closeUnmatched()
		p.pushBlock(IndentedCodeBlockKind, BlockData{})
		return startLeaf
	}

	return startNone
}

func blockAcceptsLines(kind BlockKind) bool {
	switch kind {
	case ParagraphKind, IndentedCodeBlockKind, FencedCodeBlockKind, HTMLBlockKind:
		return true
	default:
		return false
	}
}

func blockCanContain(parent, child BlockKind) bool {
	switch parent {
	case DocumentKind, BlockQuoteKind, ListItemKind:
		return child != ListItemKind
	case ListKind:
		return child == ListItemKind
	default:
		return false
	}
}

// pushBlock opens a new block as a child of the deepest open block
// that can contain it, closing any blocks that cannot.
func (p *blockParser) pushBlock(kind BlockKind, data BlockData) *openBlock {
	for !blockCanContain(p.tip().kind, kind) {
		p.finalizeTop()
	}
	parent := p.tip()
	parent.hasContent = true

	// New content after a blank line makes the nearest list loose.
	if kind == ListItemKind {
		if parent.kind == ListKind && parent.sawBlank {
			parent.loose = true
		}
	} else if parent.kind == ListItemKind && len(p.open) >= 2 {
		if list := p.open[len(p.open)-2]; list.kind == ListKind && list.sawBlank {
			list.loose = true
		}
	}
	for _, b := range p.open {
		if b.kind == ListKind {
			b.sawBlank = false
		}
	}

	ev := &blockEvent{enter: true, kind: kind, data: data}
	p.events = append(p.events, ev)
	ob := &openBlock{kind: kind, event: ev, startLine: p.lineNumber}
	p.open = append(p.open, ob)
	return ob
}

func (p *blockParser) closeUnmatched() {
	if p.allClosed {
		return
	}
	for len(p.open) > p.matched {
		p.finalizeTop()
	}
	p.allClosed = true
}

func (p *blockParser) popWithoutFinalize() {
	p.open = p.open[:len(p.open)-1]
}

// finalizeTop closes the deepest open block,
// assembling leaf content and appending its exit event.
func (p *blockParser) finalizeTop() {
	b := p.tip()
	p.open = p.open[:len(p.open)-1]
	switch b.kind {
	case ParagraphKind:
		if !b.paraJoined {
			b.paraText = extractReferenceDefinitions(p.refs, p.joinLines(b.event.lines))
			b.paraJoined = true
		}
		if len(bytes.TrimLeft(b.paraText, " \t\n")) == 0 {
			// Only link reference definitions: drop the block.
			// A leaf's enter event is always the most recent event.
			p.events = p.events[:len(p.events)-1]
			return
		}
		if p.opts.Tables && p.tryTable(b) {
			return
		}
		b.event.text = b.paraText
	case IndentedCodeBlockKind:
		lines := b.event.lines
		for len(lines) > 0 {
			last := lines[len(lines)-1]
			if !isBlankLine(p.source[last.start:last.end]) {
				break
			}
			lines = lines[:len(lines)-1]
		}
		b.event.lines = lines
	case ListKind:
		b.event.data.Tight = !b.loose
	}
	p.events = append(p.events, &blockEvent{kind: b.kind})
}

func (p *blockParser) closeAll() {
	for len(p.open) > 0 {
		p.finalizeTop()
	}
}

// joinLines assembles a leaf's lines into a single buffer,
// borrowing from the source when the content is a single line.
func (p *blockParser) joinLines(lines []contentLine) []byte {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) == 1 && lines[0].spaces == 0 {
		return p.source[lines[0].start:lines[0].end]
	}
	var buf []byte
	for i, cl := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		for n := 0; n < cl.spaces; n++ {
			buf = append(buf, ' ')
		}
		buf = append(buf, p.source[cl.start:cl.end]...)
	}
	return buf
}

func rstripped(s []byte) []byte {
	return bytes.TrimRight(s, " \t\n")
}

// scanATXHeading recognizes an ATX heading marker at the start of
// line, returning its level and content with the optional closing
// sequence removed.
func scanATXHeading(line []byte) (level int, content []byte, ok bool) {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, nil, false
	}
	if i < len(line) && !isSpaceOrTab(line[i]) {
		return 0, nil, false
	}
	level = i
	start := i
	for start < len(line) && isSpaceOrTab(line[start]) {
		start++
	}
	end := len(line)
	for end > start && isSpaceOrTab(line[end-1]) {
		end--
	}
	// Closing sequence: a run of '#' preceded by a space,
	// or the entire remaining content.
	j := end
	for j > start && line[j-1] == '#' {
		j--
	}
	if j == start {
		end = start
	} else if j < end && isSpaceOrTab(line[j-1]) {
		end = j
		for end > start && isSpaceOrTab(line[end-1]) {
			end--
		}
	}
	return level, line[start:end], true
}

// scanSetextUnderline recognizes a setext heading underline:
// a run of '=' or '-' followed by nothing but whitespace.
func scanSetextUnderline(line []byte) (level int, ok bool) {
	if len(line) == 0 {
		return 0, false
	}
	switch line[0] {
	case '=':
		level = 1
	case '-':
		level = 2
	default:
		return 0, false
	}
	i := 1
	for i < len(line) && line[i] == line[0] {
		i++
	}
	for ; i < len(line); i++ {
		if !isSpaceOrTab(line[i]) {
			return 0, false
		}
	}
	return level, true
}

// scanThematicBreak recognizes a thematic break:
// three or more of the same marker, with interior whitespace allowed.
func scanThematicBreak(line []byte) bool {
	var marker byte
	n := 0
	for _, c := range line {
		switch {
		case c == ' ' || c == '\t':
		case c == '-' || c == '_' || c == '*':
			if marker == 0 {
				marker = c
			} else if c != marker {
				return false
			}
			n++
		default:
			return false
		}
	}
	return n >= 3
}

type listMarkerData struct {
	ordered      bool
	bullet       byte
	delim        byte
	start        int
	padding      int
	markerOffset int
}

// parseListMarker recognizes a list item marker at the next nonspace
// position, consuming it and computing the item's content indent.
// container is used for the paragraph interruption rules.
func (p *blockParser) parseListMarker(container *openBlock) (listMarkerData, bool) {
	var d listMarkerData
	rest := p.line[p.nextNonspace:]
	var markerLen int
	switch {
	case len(rest) > 0 && (rest[0] == '-' || rest[0] == '+' || rest[0] == '*'):
		d.bullet = rest[0]
		markerLen = 1
	default:
		n := 0
		for n < len(rest) && isASCIIDigit(rest[n]) {
			n++
		}
		if n == 0 || n > 9 || n >= len(rest) {
			return d, false
		}
		if rest[n] != '.' && rest[n] != ')' {
			return d, false
		}
		start := 0
		for _, c := range rest[:n] {
			start = start*10 + int(c-'0')
		}
		if container.kind == ParagraphKind && start != 1 {
			return d, false
		}
		d.ordered = true
		d.start = start
		d.delim = rest[n]
		markerLen = n + 1
	}
	// The marker must be followed by whitespace or the end of line.
	if markerLen < len(rest) && !isSpaceOrTab(rest[markerLen]) {
		return d, false
	}
	// An item interrupting a paragraph cannot start with a blank line.
	if container.kind == ParagraphKind && isBlankLine(rest[markerLen:]) {
		return d, false
	}

	d.markerOffset = p.indentWidth
	p.advanceNextNonspace()
	p.advanceOffset(markerLen, false)
	spacesStartCol := p.col
	spacesStartI := p.i
	spacesStartPartial := p.partialTab
	for {
		p.advanceOffset(1, true)
		if p.col-spacesStartCol >= 5 || p.i >= len(p.line) && !p.partialTab || p.i < len(p.line) && !isSpaceOrTab(p.line[p.i]) {
			break
		}
	}
	blankItem := p.i >= len(p.line)
	spacesAfter := p.col - spacesStartCol
	if spacesAfter >= 5 || spacesAfter < 1 || blankItem {
		d.padding = markerLen + 1
		p.col = spacesStartCol
		p.i = spacesStartI
		p.partialTab = spacesStartPartial
		if p.i < len(p.line) && isSpaceOrTab(p.line[p.i]) {
			p.advanceOffset(1, true)
		}
	} else {
		d.padding = markerLen + spacesAfter
	}
	return d, true
}

// startListItem opens a list item described by d,
// creating a fresh list unless the tip is a compatible one.
func (p *blockParser) startListItem(d listMarkerData) {
	tip := p.tip()
	for tip.kind != ListKind && !blockCanContain(tip.kind, ListKind) {
		p.finalizeTop()
		tip = p.tip()
	}
	if tip.kind != ListKind || !listsMatch(tip.event.data, d) {
		data := BlockData{Tight: true}
		if d.ordered {
			data.Ordered = true
			data.Start = d.start
			data.Delim = d.delim
		} else {
			data.Bullet = d.bullet
		}
		p.pushBlock(ListKind, data)
	}
	item := p.pushBlock(ListItemKind, BlockData{})
	item.contentIndent = d.markerOffset + d.padding

	if p.opts.TaskLists {
		rest := p.line[p.i:]
		if !p.partialTab && len(rest) >= 4 &&
			rest[0] == '[' && (rest[1] == ' ' || rest[1] == 'x' || rest[1] == 'X') &&
			rest[2] == ']' && isSpaceOrTab(rest[3]) {
			item.event.data.Task = true
			item.event.data.Checked = rest[1] != ' '
			p.advanceOffset(3, false)
		}
	}
}

func listsMatch(list BlockData, d listMarkerData) bool {
	if list.Ordered != d.ordered {
		return false
	}
	if d.ordered {
		return list.Delim == d.delim
	}
	return list.Bullet == d.bullet
}
