// Package batch packs rendered text blocks into webhook-sized batches.
// The limits mirror the Discord embed contract: field name and value
// lengths, fields per embed, total characters per embed, and embeds per
// delivery run. They are external contract values and must not change.
package batch

import (
	"fmt"
	"strings"

	"libwatch/internal/render"
	"libwatch/internal/textutil"
)

const (
	MaxFieldName      = 256
	MaxFieldValue     = 1024
	MaxFieldsPerBatch = 25
	MaxCharsPerBatch  = 6000
	MaxBatchesPerRun  = 10
	MaxTitle          = 256
	MaxDescription    = 4096
)

// lineMarker is appended to a single line that alone exceeds
// MaxFieldValue. Its length fits the 20-byte headroom reserved by the
// hard truncation rule.
const lineMarker = "… [line truncated]"

// Field is one name/value pair inside a batch.
type Field struct {
	Name  string
	Value string
}

// Size is the field's contribution to the batch character budget.
func (f Field) Size() int {
	return len(f.Name) + len(f.Value)
}

// Batch is one delivery unit: a title, an optional description on the
// first batch of a run, and up to MaxFieldsPerBatch fields.
type Batch struct {
	Title       string
	Description string
	Fields      []Field
}

// Chars reports the batch's total character budget usage.
func (b Batch) Chars() int {
	used := len(b.Title) + len(b.Description)
	for _, f := range b.Fields {
		used += f.Size()
	}
	return used
}

// Pack bins the blocks into at most MaxBatchesPerRun batches. Blocks
// whose joined text exceeds MaxFieldValue are split on line boundaries
// into continuation fields first. The returned flag is true when the
// batch cap was hit and remaining fields were dropped. Packing never
// fails; it always returns the best-effort set of batches.
func Pack(title, description string, blocks []render.NamedBlock) ([]Batch, bool) {
	title = textutil.Truncate(title, MaxTitle)
	description = textutil.Truncate(description, MaxDescription)
	contTitle := textutil.Truncate(title+" (cont.)", MaxTitle)

	fields := make([]Field, 0, len(blocks))
	for _, block := range blocks {
		fields = append(fields, splitBlock(block)...)
	}

	var batches []Batch
	current := Batch{Title: title, Description: description}
	used := len(title) + len(description)

	for _, f := range fields {
		if len(current.Fields)+1 > MaxFieldsPerBatch || used+f.Size() > MaxCharsPerBatch {
			if len(current.Fields) > 0 {
				batches = append(batches, current)
			}
			if len(batches) == MaxBatchesPerRun {
				return batches, true
			}
			current = Batch{Title: contTitle}
			used = len(contTitle)
		}
		current.Fields = append(current.Fields, f)
		used += f.Size()
	}
	if len(current.Fields) > 0 {
		batches = append(batches, current)
	}
	return batches, false
}

// splitBlock serializes a block and splits it into fields no larger
// than MaxFieldValue, breaking only on line boundaries. The first field
// keeps the block name; continuations are numbered "(cont. N)".
func splitBlock(block render.NamedBlock) []Field {
	name := textutil.Truncate(block.Name, MaxFieldName)
	text := strings.Join(block.Lines, "\n")
	if text == "" {
		return nil
	}
	if len(text) <= MaxFieldValue {
		return []Field{{Name: name, Value: text}}
	}

	var fields []Field
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		fieldName := name
		if n := len(fields); n > 0 {
			fieldName = textutil.Truncate(fmt.Sprintf("%s (cont. %d)", block.Name, n), MaxFieldName)
		}
		fields = append(fields, Field{Name: fieldName, Value: buf.String()})
		buf.Reset()
	}

	for _, line := range block.Lines {
		if len(line) > MaxFieldValue {
			line = textutil.Truncate(line, MaxFieldValue-20) + lineMarker
		}
		need := len(line)
		if buf.Len() > 0 {
			need++
		}
		if buf.Len()+need > MaxFieldValue {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}
	flush()
	return fields
}
