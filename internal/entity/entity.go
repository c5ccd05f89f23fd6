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

// Package entity decodes HTML character references.
//
// Named references resolve against the WHATWG entity table embedded in
// golang.org/x/net/html. That table is initialized once and never
// mutated, so lookups are safe from concurrent parses without
// synchronization. Decoding is total: input that does not name a known
// reference simply reports no match, and numeric references outside the
// valid scalar range decode to U+FFFD.
package entity

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Digit count limits from the CommonMark grammar
// for numeric character references.
const (
	MaxDecimalDigits = 7
	MaxHexDigits     = 6
)

// DecodeNamed resolves a named character reference.
// The name excludes the leading '&' and trailing ';'.
// It returns the reference's expansion (one or two code points)
// and whether the name is known.
func DecodeNamed(name []byte) (string, bool) {
	if len(name) == 0 {
		return "", false
	}
	// The only entity whose expansion ends in a semicolon.
	// It must be special-cased because the suffix check below
	// would reject it.
	if string(name) == "semi" {
		return ";", true
	}
	ref := "&" + string(name) + ";"
	expanded := html.UnescapeString(ref)
	if expanded == ref {
		return "", false
	}
	// UnescapeString also resolves semicolon-less legacy prefixes
	// (e.g. "&ampx;" becomes "&x;"). Those are not valid references
	// here: a legitimate match consumes the whole name, so the result
	// cannot still end in the trailing semicolon.
	if strings.HasSuffix(expanded, ";") {
		return "", false
	}
	return expanded, true
}

// DecodeNumeric decodes the digits of a numeric character reference.
// The digits exclude the "&#" or "&#x" prefix and the trailing ';'.
// NUL, surrogates, and values outside the Unicode scalar range decode
// to U+FFFD. It reports false only when digits is empty, too long, or
// contains a character that is not a digit of the requested base.
func DecodeNumeric(digits []byte, hex bool) (rune, bool) {
	if len(digits) == 0 {
		return 0, false
	}
	if hex && len(digits) > MaxHexDigits || !hex && len(digits) > MaxDecimalDigits {
		return 0, false
	}
	value := 0
	for _, c := range digits {
		var d int
		switch {
		case isDigit(c):
			d = int(c - '0')
		case hex && 'a' <= c && c <= 'f':
			d = int(c-'a') + 10
		case hex && 'A' <= c && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		if hex {
			value = value*16 + d
		} else {
			value = value*10 + d
		}
	}
	if value == 0 || value > utf8.MaxRune || (0xD800 <= value && value <= 0xDFFF) {
		return utf8.RuneError, true
	}
	return rune(value), true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
