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
	"unicode/utf8"
)

type inlineNodeKind uint8

const (
	nodeText inlineNodeKind = 1 + iota
	nodeCode
	nodeHTML
	nodeSoftBreak
	nodeHardBreak
	nodeSpan
)

// An inlineNode is a transient element of a leaf block's inline
// content. Text-bearing nodes hold either a span of the content
// buffer or, when expansion changed the bytes, materialized text.
type inlineNode struct {
	kind  inlineNodeKind
	start int
	end   int
	text  []byte

	span     SpanKind
	data     SpanData
	children []*inlineNode
}

func (n *inlineNode) content(src []byte) []byte {
	if n.text != nil {
		return n.text
	}
	return src[n.start:n.end]
}

// inlineState is the scanner and delimiter state
// for parsing one leaf block's inline content.
type inlineState struct {
	opts Options
	refs referenceMap
	src  []byte

	nodes    []*inlineNode
	stack    []delimiterStackElement
	brackets []bracket

	i         int
	textStart int
}

// parseInlines parses one leaf block's assembled content into a
// sequence of inline nodes. refs supplies link reference definitions
// collected during the block phase.
func parseInlines(opts Options, refs referenceMap, src []byte) []*inlineNode {
	s := &inlineState{opts: opts, refs: refs, src: src}
	for s.i < len(src) {
		switch src[s.i] {
		case '\\':
			s.parseBackslash()
		case '`':
			s.parseCodeSpan()
		case '*', '_':
			s.parseDelimiterRun()
		case '~':
			if opts.Strikethrough {
				s.parseDelimiterRun()
			} else {
				s.i++
			}
		case '[':
			s.openBracket(false)
		case '!':
			if s.i+1 < len(src) && src[s.i+1] == '[' {
				s.openBracket(true)
			} else {
				s.i++
			}
		case ']':
			s.closeBracket()
		case '<':
			switch {
			case s.parseAngleAutolink():
			case !opts.NoHTMLSpans && s.parseRawHTML():
			default:
				s.i++
			}
		case '&':
			if expansion, end, ok := scanCharacterReference(src, s.i); ok {
				s.flushText(s.i)
				s.nodes = append(s.nodes, &inlineNode{kind: nodeText, text: expansion})
				s.i = end
				s.textStart = end
			} else {
				s.i++
			}
		case '\n':
			s.parseLineEnding()
		case ':':
			if !opts.PermissiveAutolinks || !s.parseURLAutolink() {
				s.i++
			}
		case '.':
			if !opts.PermissiveAutolinks || !s.parseWWWAutolink() {
				s.i++
			}
		case '@':
			if !opts.PermissiveAutolinks || !s.parseEmailAutolink() {
				s.i++
			}
		default:
			s.i++
		}
	}
	s.flushText(len(src))
	s.processEmphasis(0)
	return s.nodes
}

// flushText closes the pending text run, if any, at upTo.
func (s *inlineState) flushText(upTo int) {
	if s.textStart < upTo {
		s.nodes = append(s.nodes, &inlineNode{kind: nodeText, start: s.textStart, end: upTo})
	}
	s.textStart = upTo
}

func (s *inlineState) indexOf(n *inlineNode) int {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i] == n {
			return i
		}
	}
	return -1
}

// wrap gathers the nodes strictly between opener and closer
// into a new span node of the given kind.
func (s *inlineState) wrap(kind SpanKind, opener, closer *inlineNode) {
	i := s.indexOf(opener)
	j := s.indexOf(closer)
	span := &inlineNode{kind: nodeSpan, span: kind}
	span.children = make([]*inlineNode, j-(i+1))
	copy(span.children, s.nodes[i+1:j])
	s.nodes[i+1] = span
	s.nodes = append(s.nodes[:i+2], s.nodes[j:]...)
}

func (s *inlineState) remove(n *inlineNode) {
	i := s.indexOf(n)
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
}

func (s *inlineState) parseBackslash() {
	i := s.i
	switch {
	case i+1 < len(s.src) && s.src[i+1] == '\n':
		s.flushText(i)
		s.nodes = append(s.nodes, &inlineNode{kind: nodeHardBreak})
		s.i = i + 2
		s.textStart = s.i
	case i+1 < len(s.src) && isASCIIPunctuation(s.src[i+1]):
		s.flushText(i)
		s.nodes = append(s.nodes, &inlineNode{kind: nodeText, start: i + 1, end: i + 2})
		s.i = i + 2
		s.textStart = s.i
	default:
		// A backslash before anything else is literal.
		// No escapable character starts a new construct,
		// so resuming after it is safe.
		s.i = i + 1
	}
}

func (s *inlineState) parseLineEnding() {
	i := s.i
	trimEnd := i
	for trimEnd > s.textStart && isSpaceOrTab(s.src[trimEnd-1]) {
		trimEnd--
	}
	spaces := 0
	for k := i; k > s.textStart && s.src[k-1] == ' '; k-- {
		spaces++
	}
	s.flushText(trimEnd)
	kind := nodeSoftBreak
	if spaces >= 2 || s.opts.HardSoftBreaks {
		kind = nodeHardBreak
	}
	s.nodes = append(s.nodes, &inlineNode{kind: kind})
	s.i = i + 1
	s.textStart = s.i
}

func (s *inlineState) parseCodeSpan() {
	src, i := s.src, s.i
	n := 0
	for i+n < len(src) && src[i+n] == '`' {
		n++
	}
	// The closer is a backtick run of exactly the same length.
	closer := -1
	for j := i + n; j < len(src); {
		if src[j] != '`' {
			j++
			continue
		}
		m := 0
		for j+m < len(src) && src[j+m] == '`' {
			m++
		}
		if m == n {
			closer = j
			break
		}
		j += m
	}
	if closer < 0 {
		s.i = i + n
		return
	}

	s.flushText(i)
	node := &inlineNode{kind: nodeCode, start: i + n, end: closer}
	content := src[i+n : closer]
	if bytes.IndexByte(content, '\n') >= 0 {
		content = bytes.ReplaceAll(content, []byte("\n"), []byte(" "))
		node.text = content
	}
	// Strip one leading and trailing space
	// when both are present and the span isn't all spaces.
	if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && !isOnlySpaces(content) {
		if node.text != nil {
			node.text = content[1 : len(content)-1]
		} else {
			node.start++
			node.end--
		}
	}
	s.nodes = append(s.nodes, node)
	s.i = closer + n
	s.textStart = s.i
}

func isOnlySpaces(b []byte) bool {
	for _, c := range b {
		if c != ' ' {
			return false
		}
	}
	return true
}

func (s *inlineState) parseRawHTML() bool {
	end, ok := scanHTMLTag(s.src, s.i)
	if !ok {
		return false
	}
	s.flushText(s.i)
	s.nodes = append(s.nodes, &inlineNode{kind: nodeHTML, start: s.i, end: end})
	s.i = end
	s.textStart = end
	return true
}

func (s *inlineState) parseDelimiterRun() {
	src, i := s.src, s.i
	marker := src[i]
	n := 1
	for i+n < len(src) && src[i+n] == marker {
		n++
	}
	if marker == '~' && n != 2 {
		s.i = i + n
		return
	}
	s.flushText(i)
	node := &inlineNode{kind: nodeText, start: i, end: i + n}
	elem := delimiterStackElement{
		flags: emphasisFlags(src, i, i+n),
		n:     n,
		node:  node,
	}
	switch marker {
	case '*':
		elem.typ = inlineDelimiterStar
	case '_':
		elem.typ = inlineDelimiterUnderscore
	case '~':
		elem.typ = inlineDelimiterTilde
	}
	s.nodes = append(s.nodes, node)
	s.stack = append(s.stack, elem)
	s.i = i + n
	s.textStart = s.i
}

// emphasisFlags determines whether the given [delimiter run]
// [can open emphasis] and/or [can close emphasis].
//
// [delimiter run]: https://spec.commonmark.org/0.30/#delimiter-run
// [can open emphasis]: https://spec.commonmark.org/0.30/#can-open-emphasis
// [can close emphasis]: https://spec.commonmark.org/0.30/#can-close-emphasis
func emphasisFlags(source []byte, start, end int) uint8 {
	var flags uint8
	prevChar := ' '
	if start > 0 {
		prevChar, _ = utf8.DecodeLastRune(source[:start])
	}
	nextChar := ' '
	if end < len(source) {
		nextChar, _ = utf8.DecodeRune(source[end:])
	}
	leftFlanking := !isUnicodeWhitespace(nextChar) &&
		(!isUnicodePunctuation(nextChar) || isUnicodeWhitespace(prevChar) || isUnicodePunctuation(prevChar))
	rightFlanking := !isUnicodeWhitespace(prevChar) &&
		(!isUnicodePunctuation(prevChar) || isUnicodeWhitespace(nextChar) || isUnicodePunctuation(nextChar))
	// Underscores may not open or close intraword emphasis.
	intraword := source[start] != '_'
	if leftFlanking && (intraword || !rightFlanking || isUnicodePunctuation(prevChar)) {
		flags |= openerFlag
	}
	if rightFlanking && (intraword || !leftFlanking || isUnicodePunctuation(nextChar)) {
		flags |= closerFlag
	}
	return flags
}

// processEmphasis implements the [process emphasis procedure]
// to convert delimiter runs to emphasis, strong emphasis,
// and strikethrough spans.
//
// [process emphasis procedure]: https://spec.commonmark.org/0.30/#process-emphasis
func (s *inlineState) processEmphasis(stackBottom int) {
	currentPosition := stackBottom
	var openersBottom [openersBottomCount]int
	for i := range openersBottom {
		openersBottom[i] = stackBottom
	}
closerLoop:
	for {
		// Move current_position forward in the delimiter stack (if needed)
		// until we find the first potential closer.
		for {
			if currentPosition >= len(s.stack) {
				break closerLoop
			}
			if s.stack[currentPosition].flags&closerFlag != 0 {
				break
			}
			currentPosition++
		}

		// Now, look back in the stack
		// (staying above stack_bottom and the openers_bottom for this delimiter type)
		// for the first matching potential opener.
		openerIndex := currentPosition - 1
		openersBottomIndex := s.stack[currentPosition].openersBottomIndex()
		for openerIndex >= openersBottom[openersBottomIndex] &&
			!isEmphasisDelimiterMatch(s.stack[openerIndex], s.stack[currentPosition]) {
			openerIndex--
		}
		if openerIndex >= openersBottom[openersBottomIndex] {
			opener := s.stack[openerIndex].node
			closer := s.stack[currentPosition].node
			switch {
			case s.stack[openerIndex].typ == inlineDelimiterTilde:
				opener.end -= 2
				closer.start += 2
				s.wrap(StrikethroughKind, opener, closer)
			case opener.end-opener.start >= 2 && closer.end-closer.start >= 2:
				opener.end -= 2
				closer.start += 2
				s.wrap(StrongKind, opener, closer)
			default:
				opener.end--
				closer.start++
				s.wrap(EmphasisKind, opener, closer)
			}

			// Remove any delimiters between the opener and closer from the delimiter stack.
			s.stack = deleteDelimiterStack(s.stack, openerIndex+1, currentPosition)
			currentPosition = openerIndex + 1

			// If either the opening or the closing text nodes became empty,
			// remove them.
			if opener.start == opener.end {
				s.remove(opener)
				s.stack = deleteDelimiterStack(s.stack, openerIndex, openerIndex+1)
				currentPosition--
			}
			if closer.start == closer.end {
				s.remove(closer)
				s.stack = deleteDelimiterStack(s.stack, currentPosition, currentPosition+1)
			}
		} else {
			// We know that there are no openers for this kind of closer up to and including this point,
			// so put a lower bound on future searches.
			openersBottom[openersBottomIndex] = currentPosition

			if s.stack[currentPosition].flags&openerFlag == 0 {
				// Remove delimiter from the stack
				// since we know it can't be a closer either.
				s.stack = deleteDelimiterStack(s.stack, currentPosition, currentPosition+1)
			} else {
				currentPosition++
			}
		}
	}

	// After we're done, we remove all delimiters above stack_bottom from the delimiter stack.
	s.stack = deleteDelimiterStack(s.stack, stackBottom, len(s.stack))
}

type delimiterStackElement struct {
	typ   inlineDelimiter
	flags uint8
	n     int
	node  *inlineNode
}

const openersBottomCount = 8

func (elem delimiterStackElement) openersBottomIndex() int {
	switch elem.typ {
	case inlineDelimiterStar:
		if elem.flags&openerFlag == 0 {
			return elem.n % 3
		}
		return 3 + elem.n%3
	case inlineDelimiterUnderscore:
		return 6
	case inlineDelimiterTilde:
		return 7
	default:
		panic("unreachable")
	}
}

func isEmphasisDelimiterMatch(open, close delimiterStackElement) bool {
	if open.typ != close.typ ||
		open.flags&openerFlag == 0 ||
		close.flags&closerFlag == 0 {
		return false
	}
	if open.typ == inlineDelimiterTilde {
		return true
	}
	// Rule 9 & 10 of https://spec.commonmark.org/0.30/#emphasis-and-strong-emphasis
	return open.flags&closerFlag == 0 && close.flags&openerFlag == 0 ||
		(open.n+close.n)%3 != 0 ||
		open.n%3 == 0 && close.n%3 == 0
}

func deleteDelimiterStack(stack []delimiterStackElement, i, j int) []delimiterStackElement {
	copy(stack[i:], stack[j:])
	newEnd := len(stack) - (j - i)
	clear := stack[newEnd:]
	for ci := range clear {
		clear[ci] = delimiterStackElement{}
	}
	return stack[:newEnd]
}

const (
	openerFlag = 1 << iota
	closerFlag
)

type inlineDelimiter int8

const (
	inlineDelimiterStar inlineDelimiter = 1 + iota
	inlineDelimiterUnderscore
	inlineDelimiterTilde
)

// emitInlines replays a parsed inline node sequence to h.
func emitInlines(h Handler, src []byte, nodes []*inlineNode) error {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			if content := n.content(src); len(content) > 0 {
				if err := h.Text(TextNormal, content); err != nil {
					return err
				}
			}
		case nodeCode:
			if err := h.SpanStart(CodeSpanKind, &SpanData{}); err != nil {
				return err
			}
			if err := h.Text(TextCode, n.content(src)); err != nil {
				return err
			}
			if err := h.SpanEnd(CodeSpanKind); err != nil {
				return err
			}
		case nodeHTML:
			if err := h.Text(TextHTML, n.content(src)); err != nil {
				return err
			}
		case nodeSoftBreak:
			if err := h.Text(TextSoftBreak, nil); err != nil {
				return err
			}
		case nodeHardBreak:
			if err := h.Text(TextHardBreak, nil); err != nil {
				return err
			}
		case nodeSpan:
			if err := h.SpanStart(n.span, &n.data); err != nil {
				return err
			}
			if err := emitInlines(h, src, n.children); err != nil {
				return err
			}
			if err := h.SpanEnd(n.span); err != nil {
				return err
			}
		}
	}
	return nil
}
