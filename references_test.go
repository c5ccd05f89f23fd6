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
	"strings"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"foo", "foo"},
		{"Foo", "foo"},
		{"  foo\t bar\n",
			"foo bar"},
		{"ΑΓΩ", "αγω"},
		{"Толпой", "толпой"},
	}
	for _, test := range tests {
		if got := normalizeLabel([]byte(test.label)); got != test.want {
			t.Errorf("normalizeLabel(%q) = %q; want %q", test.label, got, test.want)
		}
	}
}

func TestReferenceDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "Simple",
			markdown: "[foo]: /url \"title\"\n\n[foo]\n",
			want:     "<p><a href=\"/url\" title=\"title\">foo</a></p>\n",
		},
		{
			name:     "FirstDefinitionWins",
			markdown: "[foo]: /url1\n\n[foo]: /url2\n\n[foo]\n",
			want:     "<p><a href=\"/url1\">foo</a></p>\n",
		},
		{
			name:     "UseBeforeDefinition",
			markdown: "[foo]\n\n[foo]: /url\n",
			want:     "<p><a href=\"/url\">foo</a></p>\n",
		},
		{
			name:     "CaseFolded",
			markdown: "[SS]: /url\n\n[ß]\n",
			want:     "<p><a href=\"/url\">ß</a></p>\n",
		},
		{
			name:     "TitleOnNextLine",
			markdown: "[foo]: /url\n\"title\"\n\n[foo]\n",
			want:     "<p><a href=\"/url\" title=\"title\">foo</a></p>\n",
		},
		{
			name:     "JunkAfterTitleKeepsDefinition",
			markdown: "[foo]: /url\n\"title\" ok\n\n[foo]\n",
			want:     "<p>&quot;title&quot; ok</p>\n<p><a href=\"/url\">foo</a></p>\n",
		},
		{
			name:     "NotADefinitionInsideCode",
			markdown: "    [foo]: /url\n\n[foo]\n",
			want:     "<pre><code>[foo]: /url\n</code></pre>\n<p>[foo]</p>\n",
		},
		{
			name:     "CollapsedAndShortcut",
			markdown: "[foo]: /url\n\n[foo][]\nand [foo]\n",
			want:     "<p><a href=\"/url\">foo</a>\nand <a href=\"/url\">foo</a></p>\n",
		},
		{
			name:     "EscapedBrackets",
			markdown: "[foo\\]]: /url\n\n[foo\\]]\n",
			want:     "<p><a href=\"/url\">foo]</a></p>\n",
		},
		{
			// The raw label exceeds 999 characters, so it is not a link
			// even though the whitespace would collapse to a defined label.
			name:     "OversizedLabel",
			markdown: "[foo]: /url\n\n[foo" + strings.Repeat(" ", 1000) + "]\n",
			want:     "<p>[foo" + strings.Repeat(" ", 1000) + "]</p>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := AppendHTML(nil, []byte(test.markdown), nil); string(got) != test.want {
				t.Errorf("AppendHTML(%q) = %q; want %q", test.markdown, got, test.want)
			}
		})
	}
}
