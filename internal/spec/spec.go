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

// Package spec provides a curated corpus of conformance examples
// drawn from the CommonMark specification and the GitHub-Flavored
// Markdown extensions, with the HTML renderings the reference
// implementations produce.
package spec

import (
	_ "embed"
	"encoding/json"
)

// Example is one conformance example: a Markdown document and
// the HTML a conforming renderer produces for it.
type Example struct {
	Markdown string
	HTML     string
	Example  int
	Section  string
}

//go:embed commonmark.json
var commonmarkData []byte

// LoadCommonMark returns the strict CommonMark examples.
func LoadCommonMark() ([]Example, error) {
	var testsuite []Example
	if err := json.Unmarshal(commonmarkData, &testsuite); err != nil {
		return nil, err
	}
	return testsuite, nil
}

//go:embed gfm.json
var gfmData []byte

// LoadGFM returns the examples that exercise the GitHub-Flavored
// Markdown extensions: tables, strikethrough, task lists, and
// extended autolinks.
func LoadGFM() ([]Example, error) {
	var testsuite []Example
	if err := json.Unmarshal(gfmData, &testsuite); err != nil {
		return nil, err
	}
	return testsuite, nil
}
