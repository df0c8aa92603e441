package ui

import (
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

const (
	minColumnWidth = 6
	maxColumnWidth = 40
	// sampleRows bounds how many loaded rows are measured per layout.
	sampleRows = 50
)

// baseColumnWidth is the width a column gets before content is sampled.
func baseColumnWidth(f model.Field) int {
	if f.IsRelation() {
		return 14
	}
	switch f.TypeIdentifier {
	case model.TypeID:
		return 12
	case model.TypeInt, model.TypeFloat:
		return 8
	case model.TypeBoolean:
		return 7
	case model.TypeDateTime:
		return 20
	case model.TypeEnum:
		return 10
	default:
		return 16
	}
}

// ColumnWidths computes a width per field. Each column starts at its type's
// base width, grows to fit its header and the sampled content (capped at
// maxColumnWidth) and then shares any space left in available.
func ColumnWidths(fields []model.Field, rows []*model.Record, available int) []int {
	widths := make([]int, len(fields))
	if len(fields) == 0 {
		return widths
	}
	if len(rows) > sampleRows {
		rows = rows[:sampleRows]
	}

	total := 0
	for i, f := range fields {
		w := baseColumnWidth(f)
		// header: type icon, space, name, sort indicator
		w = max(w, runewidth.StringWidth(f.Name)+4)
		for _, r := range rows {
			if r == nil {
				continue
			}
			v, _ := r.Get(f.Name)
			w = max(w, runewidth.StringWidth(formatCell(v, f))+1)
		}
		w = min(max(w, minColumnWidth), maxColumnWidth)
		widths[i] = w
		total += w
	}

	if extra := available - total; extra > 0 {
		share := extra / len(widths)
		for i := range widths {
			widths[i] += share
		}
		widths[len(widths)-1] += extra - share*len(widths)
	}
	return widths
}

// visibleColumns returns the half-open column range [first, last) that fits
// in available cells starting at offset.
func visibleColumns(widths []int, offset, available int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	used, last := 0, offset
	for last < len(widths) {
		if used+widths[last] > available && last > offset {
			break
		}
		used += widths[last]
		last++
	}
	return offset, last
}
