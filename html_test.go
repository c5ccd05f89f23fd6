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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/markstream/markstream/internal/normhtml"
	"github.com/markstream/markstream/internal/spec"
)

func TestCommonMarkSpec(t *testing.T) {
	examples, err := spec.LoadCommonMark()
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range examples {
		t.Run(fmt.Sprintf("Example%d", test.Example), func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := RenderHTML(buf, []byte(test.Markdown), nil); err != nil {
				t.Error("RenderHTML:", err)
			}
			got := string(normhtml.NormalizeHTML(buf.Bytes()))
			want := string(normhtml.NormalizeHTML([]byte(test.HTML)))
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Input:\n%s\nOutput (-want +got):\n%s", test.Markdown, diff)
			}
		})
	}
}

func TestGFMSpec(t *testing.T) {
	examples, err := spec.LoadGFM()
	if err != nil {
		t.Fatal(err)
	}
	opts := &Options{
		Tables:              true,
		Strikethrough:       true,
		TaskLists:           true,
		PermissiveAutolinks: true,
	}
	for _, test := range examples {
		t.Run(fmt.Sprintf("Example%d", test.Example), func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := RenderHTML(buf, []byte(test.Markdown), opts); err != nil {
				t.Error("RenderHTML:", err)
			}
			got := string(normhtml.NormalizeHTML(buf.Bytes()))
			want := string(normhtml.NormalizeHTML([]byte(test.HTML)))
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Input:\n%s\nOutput (-want +got):\n%s", test.Markdown, diff)
			}
		})
	}
}

func TestBlockNesting(t *testing.T) {
	// Blocks opened on the same line as their container must stay open
	// until their own continuation fails.
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "ListItemsKeepContent",
			markdown: "- a\n- b\n",
			want:     "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n",
		},
		{
			name:     "BlockQuoteKeepsParagraph",
			markdown: "> foo\n> bar\n",
			want:     "<blockquote>\n<p>foo\nbar</p>\n</blockquote>\n",
		},
		{
			name:     "NestedQuoteAndList",
			markdown: "> - one\n> - two\n",
			want:     "<blockquote>\n<ul>\n<li>one</li>\n<li>two</li>\n</ul>\n</blockquote>\n",
		},
		{
			name:     "IndentedCodeKeepsFirstLine",
			markdown: "    [foo]: /url\n\n[foo]\n",
			want:     "<pre><code>[foo]: /url\n</code></pre>\n<p>[foo]</p>\n",
		},
		{
			name:     "ListItemWithFence",
			markdown: "- ```\n  a\n  ```\n",
			want:     "<ul>\n<li>\n<pre><code>a\n</code></pre>\n</li>\n</ul>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := string(AppendHTML(nil, []byte(test.markdown), nil))
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Input:\n%s\nOutput (-want +got):\n%s", test.markdown, diff)
			}
		})
	}
}

func TestFilterTag(t *testing.T) {
	allowAll := func(name string) bool { return true }
	blockScripts := func(name string) bool {
		switch name {
		case "script", "iframe", "style":
			return false
		}
		return true
	}

	tests := []struct {
		name     string
		markdown string
		filter   func(string) bool
		want     string
	}{
		{
			name:     "NilFilterPassesThrough",
			markdown: "<script>alert('x')</script>\n",
			filter:   nil,
			want:     "<script>alert('x')</script>\n",
		},
		{
			name:     "AllowAllPassesThrough",
			markdown: "<script>alert('x')</script>\n",
			filter:   allowAll,
			want:     "<script>alert('x')</script>\n",
		},
		{
			name:     "BlockedTagIsDisarmed",
			markdown: "<script>alert('x')</script>\n",
			filter:   blockScripts,
			want:     "&lt;script>alert('x')&lt;/script>\n",
		},
		{
			name:     "BlockedInlineTag",
			markdown: "a <iframe src=\"x\"></iframe> b\n",
			filter:   blockScripts,
			want:     "<p>a &lt;iframe src=\"x\">&lt;/iframe> b</p>\n",
		},
		{
			name:     "AllowedTagUntouched",
			markdown: "a <b>bold</b> b\n",
			filter:   blockScripts,
			want:     "<p>a <b>bold</b> b</p>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := &HTMLRenderer{FilterTag: test.filter}
			if err := Parse([]byte(test.markdown), nil, r); err != nil {
				t.Fatal("Parse:", err)
			}
			if got := string(r.Bytes()); got != test.want {
				t.Errorf("rendered %q; want %q", got, test.want)
			}
		})
	}
}

func TestHTMLRendererReset(t *testing.T) {
	r := new(HTMLRenderer)
	if err := Parse([]byte("first\n"), nil, r); err != nil {
		t.Fatal("Parse:", err)
	}
	r.Reset()
	if err := Parse([]byte("second\n"), nil, r); err != nil {
		t.Fatal("Parse:", err)
	}
	if got, want := string(r.Bytes()), "<p>second</p>\n"; got != want {
		t.Errorf("after Reset, rendered %q; want %q", got, want)
	}
}
