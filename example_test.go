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

package markstream_test

import (
	"fmt"
	"os"

	"github.com/markstream/markstream"
)

func Example() {
	// Convert Markdown to HTML.
	markstream.RenderHTML(os.Stdout, []byte("Hello, **World**!\n"), nil)
	// Output:
	// <p>Hello, <strong>World</strong>!</p>
}

// A headingCollector listens for heading events and records their text.
type headingCollector struct {
	inHeading bool
	current   []byte
	headings  []string
}

func (c *headingCollector) BlockStart(kind markstream.BlockKind, data *markstream.BlockData) error {
	if kind.IsHeading() {
		c.inHeading = true
		c.current = c.current[:0]
	}
	return nil
}

func (c *headingCollector) BlockEnd(kind markstream.BlockKind) error {
	if kind.IsHeading() {
		c.inHeading = false
		c.headings = append(c.headings, string(c.current))
	}
	return nil
}

func (c *headingCollector) SpanStart(markstream.SpanKind, *markstream.SpanData) error { return nil }
func (c *headingCollector) SpanEnd(markstream.SpanKind) error { return nil }

func (c *headingCollector) Text(kind markstream.TextKind, text []byte) error {
	if c.inHeading {
		c.current = append(c.current, text...)
	}
	return nil
}

func ExampleParse() {
	input := "# Introduction\n" +
		"\n" +
		"Some prose.\n" +
		"\n" +
		"## Details\n"

	// Collect the document's outline without building a tree.
	c := new(headingCollector)
	if err := markstream.Parse([]byte(input), nil, c); err != nil {
		panic(err)
	}
	for _, h := range c.headings {
		fmt.Println(h)
	}
	// Output:
	// Introduction
	// Details
}
