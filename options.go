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

// Options selects grammar extensions and safety restrictions.
// The zero value parses strict CommonMark.
//
// Each field is an independent toggle: turning one on inserts one more
// block-start rule or inline-delimiter rule into the fixed priority
// order, or removes one class of raw output.
type Options struct {
	// Tables recognizes GitHub-style pipe tables.
	Tables bool
	// Strikethrough recognizes ~~struck~~ spans.
	Strikethrough bool
	// TaskLists recognizes [ ] and [x] checkboxes after list item markers.
	TaskLists bool
	// PermissiveAutolinks turns bare http://, https://, www., and
	// email-shaped text into links without requiring angle brackets.
	PermissiveAutolinks bool
	// NoHTMLBlocks disables HTML block recognition;
	// would-be HTML blocks parse as ordinary text.
	// Useful when rendering untrusted input.
	NoHTMLBlocks bool
	// NoHTMLSpans disables raw inline HTML;
	// tag-shaped text renders as literal text.
	NoHTMLSpans bool
	// HardSoftBreaks treats every soft line break as a hard break.
	HardSoftBreaks bool
}
