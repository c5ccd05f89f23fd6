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
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/markstream/markstream/internal/spec"
)

// An eventRecorder captures the event stream as one string per event
// so tests can compare document structure directly.
type eventRecorder struct {
	events []string
}

func (r *eventRecorder) BlockStart(kind BlockKind, data *BlockData) error {
	switch kind {
	case ATXHeadingKind, SetextHeadingKind:
		r.events = append(r.events, fmt.Sprintf("+%v level=%d", kind, data.Level))
	case FencedCodeBlockKind:
		if data.Info != nil {
			r.events = append(r.events, fmt.Sprintf("+%v info=%s", kind, data.Info))
			return nil
		}
		r.events = append(r.events, fmt.Sprintf("+%v", kind))
	case ListKind:
		r.events = append(r.events, fmt.Sprintf("+%v ordered=%t tight=%t", kind, data.Ordered, data.Tight))
	case ListItemKind:
		if data.Task {
			r.events = append(r.events, fmt.Sprintf("+%v checked=%t", kind, data.Checked))
			return nil
		}
		r.events = append(r.events, fmt.Sprintf("+%v", kind))
	default:
		r.events = append(r.events, fmt.Sprintf("+%v", kind))
	}
	return nil
}

func (r *eventRecorder) BlockEnd(kind BlockKind) error {
	r.events = append(r.events, fmt.Sprintf("-%v", kind))
	return nil
}

func (r *eventRecorder) SpanStart(kind SpanKind, data *SpanData) error {
	if kind == LinkKind || kind == ImageKind {
		r.events = append(r.events, fmt.Sprintf("<%v dest=%s", kind, data.Destination))
		return nil
	}
	r.events = append(r.events, fmt.Sprintf("<%v", kind))
	return nil
}

func (r *eventRecorder) SpanEnd(kind SpanKind) error {
	r.events = append(r.events, fmt.Sprintf(">%v", kind))
	return nil
}

func (r *eventRecorder) Text(kind TextKind, text []byte) error {
	switch kind {
	case TextSoftBreak, TextHardBreak:
		r.events = append(r.events, kind.String())
	default:
		r.events = append(r.events, fmt.Sprintf("%v(%s)", kind, text))
	}
	return nil
}

func TestParseEvents(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		opts     *Options
		want     []string
	}{
		{
			name:     "Heading",
			markdown: "# Hi\n",
			want: []string{
				"+Document",
				"+ATXHeading level=1",
				"Normal(Hi)",
				"-ATXHeading",
				"-Document",
			},
		},
		{
			name:     "Paragraph",
			markdown: "Para *em*\n",
			want: []string{
				"+Document",
				"+Paragraph",
				"Normal(Para )",
				"<Emphasis",
				"Normal(em)",
				">Emphasis",
				"-Paragraph",
				"-Document",
			},
		},
		{
			name:     "SoftBreak",
			markdown: "> a\nb\n",
			want: []string{
				"+Document",
				"+BlockQuote",
				"+Paragraph",
				"Normal(a)",
				"SoftBreak",
				"Normal(b)",
				"-Paragraph",
				"-BlockQuote",
				"-Document",
			},
		},
		{
			name:     "TightList",
			markdown: "- a\n- b\n",
			want: []string{
				"+Document",
				"+List ordered=false tight=true",
				"+ListItem",
				"+Paragraph",
				"Normal(a)",
				"-Paragraph",
				"-ListItem",
				"+ListItem",
				"+Paragraph",
				"Normal(b)",
				"-Paragraph",
				"-ListItem",
				"-List",
				"-Document",
			},
		},
		{
			name:     "LooseList",
			markdown: "- a\n\n- b\n",
			want: []string{
				"+Document",
				"+List ordered=false tight=false",
				"+ListItem",
				"+Paragraph",
				"Normal(a)",
				"-Paragraph",
				"-ListItem",
				"+ListItem",
				"+Paragraph",
				"Normal(b)",
				"-Paragraph",
				"-ListItem",
				"-List",
				"-Document",
			},
		},
		{
			name:     "FencedCode",
			markdown: "```go\nx := 1\n```\n",
			want: []string{
				"+Document",
				"+FencedCodeBlock info=go",
				"Code(x := 1\n)",
				"-FencedCodeBlock",
				"-Document",
			},
		},
		{
			name:     "SetextHeading",
			markdown: "Foo\n===\n",
			want: []string{
				"+Document",
				"+SetextHeading level=1",
				"Normal(Foo)",
				"-SetextHeading",
				"-Document",
			},
		},
		{
			name:     "Link",
			markdown: "[x](/y)\n",
			want: []string{
				"+Document",
				"+Paragraph",
				"<Link dest=/y",
				"Normal(x)",
				">Link",
				"-Paragraph",
				"-Document",
			},
		},
		{
			name:     "TaskList",
			markdown: "- [x] done\n",
			opts:     &Options{TaskLists: true},
			want: []string{
				"+Document",
				"+List ordered=false tight=true",
				"+ListItem checked=true",
				"+Paragraph",
				"Normal(done)",
				"-Paragraph",
				"-ListItem",
				"-List",
				"-Document",
			},
		},
		{
			name:     "Table",
			markdown: "| a | b |\n| - | - |\n| c | d |\n",
			opts:     &Options{Tables: true},
			want: []string{
				"+Document",
				"+Table",
				"+TableRow",
				"+TableCell",
				"Normal(a)",
				"-TableCell",
				"+TableCell",
				"Normal(b)",
				"-TableCell",
				"-TableRow",
				"+TableRow",
				"+TableCell",
				"Normal(c)",
				"-TableCell",
				"+TableCell",
				"Normal(d)",
				"-TableCell",
				"-TableRow",
				"-Table",
				"-Document",
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := new(eventRecorder)
			if err := Parse([]byte(test.markdown), test.opts, rec); err != nil {
				t.Fatal("Parse:", err)
			}
			if diff := cmp.Diff(test.want, rec.events); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsecureCharacters(t *testing.T) {
	rec := new(eventRecorder)
	if err := Parse([]byte("abc\x00def\n"), nil, rec); err != nil {
		t.Fatal("Parse:", err)
	}
	want := []string{
		"+Document",
		"+Paragraph",
		"Normal(abc�def)",
		"-Paragraph",
		"-Document",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

// An erroringHandler fails on the nth event.
type erroringHandler struct {
	n   int
	err error
}

func (h *erroringHandler) event() error {
	h.n--
	if h.n < 0 {
		return h.err
	}
	return nil
}

func (h *erroringHandler) BlockStart(BlockKind, *BlockData) error { return h.event() }
func (h *erroringHandler) BlockEnd(BlockKind) error { return h.event() }
func (h *erroringHandler) SpanStart(SpanKind, *SpanData) error { return h.event() }
func (h *erroringHandler) SpanEnd(SpanKind) error { return h.event() }
func (h *erroringHandler) Text(TextKind, []byte) error { return h.event() }

func TestHandlerError(t *testing.T) {
	want := errors.New("stop")
	for n := 0; n < 4; n++ {
		h := &erroringHandler{n: n, err: want}
		if err := Parse([]byte("# Hi\n\npara\n"), nil, h); err != want {
			t.Errorf("Parse with failure at event %d = %v; want %v", n, err, want)
		}
	}
}

// A balanceChecker verifies the nesting discipline of the event
// stream: every start has a matching end and text only occurs inside
// a block that holds content.
type balanceChecker struct {
	t      *testing.T
	blocks []BlockKind
	spans  []SpanKind
}

func (c *balanceChecker) BlockStart(kind BlockKind, data *BlockData) error {
	if len(c.spans) > 0 {
		c.t.Errorf("block %v started inside span %v", kind, c.spans[len(c.spans)-1])
	}
	c.blocks = append(c.blocks, kind)
	return nil
}

func (c *balanceChecker) BlockEnd(kind BlockKind) error {
	if len(c.blocks) == 0 {
		c.t.Errorf("end of %v with no open block", kind)
		return nil
	}
	if got := c.blocks[len(c.blocks)-1]; got != kind {
		c.t.Errorf("end of %v inside %v", kind, got)
	}
	c.blocks = c.blocks[:len(c.blocks)-1]
	return nil
}

func (c *balanceChecker) SpanStart(kind SpanKind, data *SpanData) error {
	c.spans = append(c.spans, kind)
	return nil
}

func (c *balanceChecker) SpanEnd(kind SpanKind) error {
	if len(c.spans) == 0 {
		c.t.Errorf("end of %v with no open span", kind)
		return nil
	}
	if got := c.spans[len(c.spans)-1]; got != kind {
		c.t.Errorf("end of %v inside %v", kind, got)
	}
	c.spans = c.spans[:len(c.spans)-1]
	return nil
}

func (c *balanceChecker) Text(kind TextKind, text []byte) error {
	if len(c.blocks) == 0 {
		c.t.Error("text outside any block")
	}
	return nil
}

func FuzzParse(f *testing.F) {
	examples, err := spec.LoadCommonMark()
	if err != nil {
		f.Fatal(err)
	}
	for _, test := range examples {
		f.Add(test.Markdown)
	}
	gfm, err := spec.LoadGFM()
	if err != nil {
		f.Fatal(err)
	}
	for _, test := range gfm {
		f.Add(test.Markdown)
	}

	allOptions := &Options{
		Tables:              true,
		Strikethrough:       true,
		TaskLists:           true,
		PermissiveAutolinks: true,
		HardSoftBreaks:      true,
	}
	f.Fuzz(func(t *testing.T, markdown string) {
		for _, opts := range []*Options{nil, allOptions} {
			c := &balanceChecker{t: t}
			if err := Parse([]byte(markdown), opts, c); err != nil {
				t.Error("Parse:", err)
			}
			if len(c.blocks) > 0 || len(c.spans) > 0 {
				t.Errorf("unclosed at end of document: %v %v", c.blocks, c.spans)
			}
		}
	})
}
