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

// Package normhtml normalizes HTML fragments so that renderings that
// differ only in insignificant ways compare equal, following the
// [CommonMark spec test normalization].
//
// [CommonMark spec test normalization]: https://github.com/commonmark/commonmark-spec/blob/0.30.0/test/normalize.py
package normhtml

import (
	"bytes"
	"regexp"
	"sort"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var textEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&apos;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// normalizer carries the tokenizer state of one normalization pass.
type normalizer struct {
	out []byte

	// prev is the kind of the previous token, with self-closing tags
	// recorded as end tags.
	prev    html.TokenType
	prevTag atom.Atom
	inPre   bool
}

// NormalizeHTML rewrites an HTML fragment into a canonical form:
// text is re-escaped minimally, whitespace around block-level tags is
// dropped, runs of whitespace outside pre elements collapse to one
// space, and attributes are sorted by name.
func NormalizeHTML(b []byte) []byte {
	n := &normalizer{prev: html.StartTagToken}
	tok := html.NewTokenizerFragment(bytes.NewReader(b), "div")
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			return n.out
		case html.TextToken:
			n.text(tok.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			n.startTag(tok)
		case html.EndTagToken:
			name, _ := tok.TagName()
			n.endTag(name)
		case html.CommentToken:
			n.out = append(n.out, tok.Raw()...)
		}
		n.prev = tt
		if tt == html.SelfClosingTagToken {
			n.prev = html.EndTagToken
		}
	}
}

func (n *normalizer) text(data []byte) {
	afterTag := n.prev == html.StartTagToken || n.prev == html.EndTagToken
	if afterTag && n.prevTag == atom.Br {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
		if afterTag && isBlockTag(n.prevTag) {
			if n.prev == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	n.out = append(n.out, textEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) startTag(tok *html.Tokenizer) {
	name, hasAttr := tok.TagName()
	tag := atom.Lookup(name)
	if tag == atom.Pre {
		n.inPre = true
	}
	if isBlockTag(tag) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, '<')
	n.out = append(n.out, name...)
	if hasAttr {
		type attribute struct {
			key   string
			value string
		}
		var attrs []attribute
		for {
			k, v, more := tok.TagAttr()
			attrs = append(attrs, attribute{string(k), string(v)})
			if !more {
				break
			}
		}
		sort.Slice(attrs, func(i, j int) bool {
			return attrs[i].key < attrs[j].key
		})
		for _, attr := range attrs {
			n.out = append(n.out, ' ')
			n.out = append(n.out, attr.key...)
			if attr.value != "" {
				n.out = append(n.out, `="`...)
				n.out = append(n.out, html.EscapeString(attr.value)...)
				n.out = append(n.out, '"')
			}
		}
	}
	n.out = append(n.out, '>')
	n.prevTag = tag
}

func (n *normalizer) endTag(name []byte) {
	tag := atom.Lookup(name)
	if tag == atom.Pre {
		n.inPre = false
	} else if isBlockTag(tag) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, "</"...)
	n.out = append(n.out, name...)
	n.out = append(n.out, '>')
	n.prevTag = tag
}

func isBlockTag(tag atom.Atom) bool {
	switch tag {
	case atom.Article, atom.Aside, atom.Blockquote, atom.Body, atom.Button,
		atom.Canvas, atom.Caption, atom.Col, atom.Colgroup, atom.Dd,
		atom.Div, atom.Dl, atom.Dt, atom.Embed, atom.Fieldset,
		atom.Figcaption, atom.Figure, atom.Footer, atom.Form,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hgroup, atom.Hr, atom.Iframe, atom.Li,
		atom.Map, atom.Object, atom.Ol, atom.Output, atom.P, atom.Pre,
		atom.Progress, atom.Script, atom.Section, atom.Style,
		atom.Table, atom.Tbody, atom.Td, atom.Textarea, atom.Tfoot,
		atom.Th, atom.Thead, atom.Tr, atom.Ul, atom.Video:
		return true
	default:
		return false
	}
}
