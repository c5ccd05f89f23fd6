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

import "bytes"

// tryTable reinterprets a finished paragraph as a pipe table:
// a header row, a delimiter row, and zero or more body rows.
// On success the paragraph's enter event is rewritten in place
// and the table's events appended. Reports whether it converted.
func (p *blockParser) tryTable(b *openBlock) bool {
	lines := bytes.Split(b.paraText, []byte("\n"))
	if len(lines) < 2 {
		return false
	}
	aligns, ok := parseTableDelimiter(lines[1])
	if !ok {
		return false
	}
	headerCells := splitTableRow(lines[0])
	if len(headerCells) != len(aligns) {
		return false
	}

	b.event.kind = TableKind
	b.event.data = BlockData{Aligns: aligns}
	b.event.lines = nil
	p.appendTableRow(headerCells, aligns, true)
	for _, line := range lines[2:] {
		p.appendTableRow(splitTableRow(line), aligns, false)
	}
	p.events = append(p.events, &blockEvent{kind: TableKind})
	return true
}

func (p *blockParser) appendTableRow(cells [][]byte, aligns []Alignment, header bool) {
	p.events = append(p.events, &blockEvent{
		enter: true,
		kind:  TableRowKind,
		data:  BlockData{Header: header},
	})
	// Rows are padded or truncated to the header's cell count.
	for i, align := range aligns {
		var cell []byte
		if i < len(cells) {
			cell = cells[i]
		}
		p.events = append(p.events,
			&blockEvent{
				enter: true,
				kind:  TableCellKind,
				data:  BlockData{Header: header, Align: align},
				text:  cell,
			},
			&blockEvent{kind: TableCellKind})
	}
	p.events = append(p.events, &blockEvent{kind: TableRowKind})
}

// parseTableDelimiter recognizes a delimiter row:
// cells of dashes with optional alignment colons,
// with at least one unescaped pipe.
func parseTableDelimiter(row []byte) ([]Alignment, bool) {
	if !hasUnescapedPipe(row) {
		return nil, false
	}
	cells := splitTableRow(row)
	if len(cells) == 0 {
		return nil, false
	}
	aligns := make([]Alignment, len(cells))
	for i, cell := range cells {
		if len(cell) == 0 {
			return nil, false
		}
		left := cell[0] == ':'
		if left {
			cell = cell[1:]
		}
		right := len(cell) > 0 && cell[len(cell)-1] == ':'
		if right {
			cell = cell[:len(cell)-1]
		}
		if len(cell) == 0 {
			return nil, false
		}
		for _, c := range cell {
			if c != '-' {
				return nil, false
			}
		}
		switch {
		case left && right:
			aligns[i] = AlignCenter
		case left:
			aligns[i] = AlignLeft
		case right:
			aligns[i] = AlignRight
		}
	}
	return aligns, true
}

// splitTableRow splits a row into trimmed cells on unescaped pipes.
// Leading and trailing pipes do not delimit cells.
func splitTableRow(row []byte) [][]byte {
	row = bytes.Trim(row, " \t")
	if len(row) == 0 {
		return nil
	}
	start := 0
	if row[0] == '|' {
		start = 1
	}
	var cells [][]byte
	cellStart := start
	i := start
	for i < len(row) {
		switch row[i] {
		case '\\':
			i += 2
		case '|':
			cells = append(cells, tableCellText(row[cellStart:i]))
			i++
			cellStart = i
		default:
			i++
		}
	}
	if cellStart < len(row) {
		cells = append(cells, tableCellText(row[cellStart:]))
	}
	return cells
}

// tableCellText trims a cell and resolves pipe escapes.
// Escaped pipes lose their backslash before inline parsing
// so that they stay literal even inside code spans.
func tableCellText(cell []byte) []byte {
	cell = bytes.Trim(cell, " \t")
	if !bytes.Contains(cell, []byte(`\|`)) {
		return cell
	}
	return bytes.ReplaceAll(cell, []byte(`\|`), []byte(`|`))
}

func hasUnescapedPipe(row []byte) bool {
	for i := 0; i < len(row); i++ {
		switch row[i] {
		case '\\':
			i++
		case '|':
			return true
		}
	}
	return false
}
