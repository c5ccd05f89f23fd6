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

// A bracket is a pending '[' or '![' awaiting its closing bracket.
type bracket struct {
	node  *inlineNode
	image bool
	// active is cleared on link openers enclosing a completed link,
	// since links may not nest.
	active bool
	// delimPos is the delimiter stack depth when the bracket opened.
	delimPos int
	// bracketAfter reports that another bracket opened later,
	// which rules out using the interior as a reference label.
	bracketAfter bool
}

func (s *inlineState) openBracket(image bool) {
	i := s.i
	width := 1
	if image {
		width = 2
	}
	s.flushText(i)
	node := &inlineNode{kind: nodeText, start: i, end: i + width}
	s.nodes = append(s.nodes, node)
	if len(s.brackets) > 0 {
		s.brackets[len(s.brackets)-1].bracketAfter = true
	}
	s.brackets = append(s.brackets, bracket{
		node:     node,
		image:    image,
		active:   true,
		delimPos: len(s.stack),
	})
	s.i = i + width
	s.textStart = s.i
}

// closeBracket handles a ']' by attempting, in order, an inline link,
// a full reference, a collapsed reference, and a shortcut reference.
// On failure the bracket pair is left behind as literal text.
func (s *inlineState) closeBracket() {
	startPos := s.i
	s.flushText(startPos)
	s.i = startPos + 1

	if len(s.brackets) == 0 {
		// Literal ']': leave it for the next text run.
		s.textStart = startPos
		return
	}
	opener := s.brackets[len(s.brackets)-1]
	if !opener.active {
		s.brackets = s.brackets[:len(s.brackets)-1]
		s.textStart = startPos
		return
	}

	var data SpanData
	matched := false

	// Inline link: ](destination "title")
	if s.i < len(s.src) && s.src[s.i] == '(' {
		pos := skipLinkWhitespace(s.src, s.i+1, 1)
		if ds, de, after, ok := parseLinkDestination(s.src, pos); ok {
			end := skipLinkWhitespace(s.src, after, 1)
			var ts, te int
			hasTitle := false
			// A title must be separated from the destination by whitespace.
			if end > after && end < len(s.src) {
				if a, b, c, titleOK := parseLinkTitle(s.src, end); titleOK {
					ts, te = a, b
					hasTitle = true
					end = skipLinkWhitespace(s.src, c, 1)
				}
			}
			if end < len(s.src) && s.src[end] == ')' {
				matched = true
				data.Destination = resolveEscapes(s.src[ds:de])
				if hasTitle {
					data.Title = resolveEscapes(s.src[ts:te])
					data.TitlePresent = true
				}
				s.i = end + 1
			}
		}
	}

	// Reference link.
	if !matched {
		s.i = startPos + 1
		var refLabel []byte
		labelEnd := -1
		if ls, le, after, ok := parseLinkLabel(s.src, s.i); ok {
			if after-s.i > 2 {
				// Full reference: [text][label]
				refLabel = s.src[ls:le]
			} else if !opener.bracketAfter {
				// Collapsed reference: [label][]
				refLabel = s.src[opener.node.end:startPos]
			}
			labelEnd = after
		} else if !opener.bracketAfter {
			// Shortcut reference: [label]
			refLabel = s.src[opener.node.end:startPos]
		}
		if len(refLabel) > 0 && len(refLabel) <= maxLabelLength {
			if ref, ok := s.refs.lookup(refLabel); ok {
				matched = true
				data.Destination = ref.destination
				data.Title = ref.title
				data.TitlePresent = ref.titlePresent
				if labelEnd >= 0 {
					s.i = labelEnd
				}
			}
		}
	}

	if !matched {
		s.brackets = s.brackets[:len(s.brackets)-1]
		s.i = startPos + 1
		s.textStart = startPos
		return
	}

	kind := LinkKind
	if opener.image {
		kind = ImageKind
	}
	// Resolve emphasis within the brackets
	// while the nodes are still siblings.
	s.processEmphasis(opener.delimPos)

	idx := s.indexOf(opener.node)
	span := &inlineNode{kind: nodeSpan, span: kind, data: data}
	span.children = make([]*inlineNode, len(s.nodes)-(idx+1))
	copy(span.children, s.nodes[idx+1:])
	s.nodes[idx] = span
	s.nodes = s.nodes[:idx+1]

	s.brackets = s.brackets[:len(s.brackets)-1]
	if kind == LinkKind {
		// Links may not contain links:
		// deactivate every enclosing link opener.
		for k := range s.brackets {
			if !s.brackets[k].image {
				s.brackets[k].active = false
			}
		}
	}
	s.textStart = s.i
}
