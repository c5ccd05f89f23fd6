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

import "testing"

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		opts     Options
		want     string
		wantOff  string
	}{
		{
			name:     "Tables",
			markdown: "| a |\n| - |\n",
			opts:     Options{Tables: true},
			want:     "<table>\n<thead>\n<tr>\n<th>a</th>\n</tr>\n</thead>\n</table>\n",
			wantOff:  "<p>| a |\n| - |</p>\n",
		},
		{
			name:     "Strikethrough",
			markdown: "~~x~~\n",
			opts:     Options{Strikethrough: true},
			want:     "<p><del>x</del></p>\n",
			wantOff:  "<p>~~x~~</p>\n",
		},
		{
			name:     "StrikethroughSingleTilde",
			markdown: "~x~\n",
			opts:     Options{Strikethrough: true},
			want:     "<p>~x~</p>\n",
			wantOff:  "<p>~x~</p>\n",
		},
		{
			name:     "TaskLists",
			markdown: "- [x] done\n",
			opts:     Options{TaskLists: true},
			want:     "<ul>\n<li><input type=\"checkbox\" disabled=\"\" checked=\"\"> done</li>\n</ul>\n",
			wantOff:  "<ul>\n<li>[x] done</li>\n</ul>\n",
		},
		{
			name:     "PermissiveAutolinksWWW",
			markdown: "see www.example.com now\n",
			opts:     Options{PermissiveAutolinks: true},
			want:     "<p>see <a href=\"http://www.example.com\">www.example.com</a> now</p>\n",
			wantOff:  "<p>see www.example.com now</p>\n",
		},
		{
			name:     "PermissiveAutolinksEmail",
			markdown: "mail foo@bar.baz\n",
			opts:     Options{PermissiveAutolinks: true},
			want:     "<p>mail <a href=\"mailto:foo@bar.baz\">foo@bar.baz</a></p>\n",
			wantOff:  "<p>mail foo@bar.baz</p>\n",
		},
		{
			name:     "NoHTMLBlocks",
			markdown: "<div>\nfoo\n</div>\n",
			opts:     Options{NoHTMLBlocks: true},
			want:     "<p><div>\nfoo\n</div></p>\n",
			wantOff:  "<div>\nfoo\n</div>\n",
		},
		{
			name:     "NoHTMLSpans",
			markdown: "a <b> c\n",
			opts:     Options{NoHTMLSpans: true},
			want:     "<p>a &lt;b&gt; c</p>\n",
			wantOff:  "<p>a <b> c</p>\n",
		},
		{
			name:     "HardSoftBreaks",
			markdown: "foo\nbar\n",
			opts:     Options{HardSoftBreaks: true},
			want:     "<p>foo<br />\nbar</p>\n",
			wantOff:  "<p>foo\nbar</p>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := AppendHTML(nil, []byte(test.markdown), &test.opts); string(got) != test.want {
				t.Errorf("with option: AppendHTML(%q) = %q; want %q", test.markdown, got, test.want)
			}
			if got := AppendHTML(nil, []byte(test.markdown), nil); string(got) != test.wantOff {
				t.Errorf("without option: AppendHTML(%q) = %q; want %q", test.markdown, got, test.wantOff)
			}
		})
	}
}
