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

// Package markstream parses Markdown as a stream of document events.
//
// Parsing happens in two ordered passes over the input:
// a block pass that determines the document's structure and collects
// link reference definitions, and an inline pass that parses each
// leaf's content. The caller observes a single flattened sequence of
// events in document order through a [Handler], without an
// intermediate syntax tree.
//
// The grammar is [CommonMark], with optional extensions
// selected through [Options].
//
// [CommonMark]: https://spec.commonmark.org/0.30/
package markstream

import "bytes"

// Parse parses source as Markdown and streams the document's events
// to h in document order. opts may be nil for strict CommonMark.
//
// The returned error is the first non-nil error returned by one of
// h's methods, unchanged. Parse itself cannot fail: every sequence of
// bytes is a valid Markdown document.
func Parse(source []byte, opts *Options, h Handler) error {
	var o Options
	if opts != nil {
		o = *opts
	}
	// Insecure character replacement.
	if bytes.IndexByte(source, 0) >= 0 {
		source = bytes.ReplaceAll(source, []byte{0}, []byte("�"))
	}

	p := newBlockParser(source, o)
	lineNumber := 0
	for off := 0; off < len(source); {
		lineNumber++
		end := off
		for end < len(source) && source[end] != '\n' && source[end] != '\r' {
			end++
		}
		p.incorporateLine(off, source[off:end], lineNumber)
		if end < len(source) {
			if source[end] == '\r' && end+1 < len(source) && source[end+1] == '\n' {
				end++
			}
			end++
		}
		off = end
	}
	p.closeAll()
	return replay(p, h)
}

// replay walks the block skeleton in document order,
// parsing leaf content into inlines along the way.
func replay(p *blockParser, h Handler) error {
	var scratch []byte
	for _, ev := range p.events {
		if !ev.enter {
			if err := h.BlockEnd(ev.kind); err != nil {
				return err
			}
			continue
		}
		if err := h.BlockStart(ev.kind, &ev.data); err != nil {
			return err
		}
		switch ev.kind {
		case ParagraphKind, ATXHeadingKind, SetextHeadingKind, TableCellKind:
			if text := rstripped(ev.text); len(text) > 0 {
				nodes := parseInlines(p.opts, p.refs, text)
				if err := emitInlines(h, text, nodes); err != nil {
					return err
				}
			}
		case IndentedCodeBlockKind, FencedCodeBlockKind:
			for _, cl := range ev.lines {
				scratch = appendContentLine(scratch[:0], p.source, cl)
				if err := h.Text(TextCode, scratch); err != nil {
					return err
				}
			}
		case HTMLBlockKind:
			for _, cl := range ev.lines {
				scratch = appendContentLine(scratch[:0], p.source, cl)
				if err := h.Text(TextHTML, scratch); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func appendContentLine(dst, source []byte, cl contentLine) []byte {
	for n := 0; n < cl.spaces; n++ {
		dst = append(dst, ' ')
	}
	dst = append(dst, source[cl.start:cl.end]...)
	return append(dst, '\n')
}
