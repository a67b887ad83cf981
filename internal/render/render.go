// Package render turns diff records into named text blocks ready for
// batching. Grouping and line formatting are supplied by the caller so
// each watch domain controls its own presentation.
package render

import (
	"fmt"

	"libwatch/internal/diff"
)

// NamedBlock is one logical section of a report: a heading plus the
// lines that belong under it.
type NamedBlock struct {
	Name  string
	Lines []string
}

// GroupFunc maps a record to the block it belongs in.
type GroupFunc func(diff.Record) string

// LineFunc formats a record as a single line of block text.
type LineFunc func(diff.Record) string

// Blocks groups records and renders them into named blocks. Input order
// is preserved both across groups (first appearance wins) and within
// each group, so the caller's sorted records stay sorted. Block names
// carry the record count as a suffix, e.g. "Movies (3)". A LineFunc
// returning "" drops that record; groups left empty are omitted.
func Blocks(records []diff.Record, group GroupFunc, line LineFunc) []NamedBlock {
	order := make([]string, 0)
	byGroup := make(map[string][]string)
	for _, rec := range records {
		key := group(rec)
		text := line(rec)
		if text == "" {
			continue
		}
		if _, seen := byGroup[key]; !seen {
			order = append(order, key)
		}
		byGroup[key] = append(byGroup[key], text)
	}

	blocks := make([]NamedBlock, 0, len(order))
	for _, key := range order {
		lines := byGroup[key]
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, NamedBlock{
			Name:  fmt.Sprintf("%s (%d)", key, len(lines)),
			Lines: lines,
		})
	}
	return blocks
}
