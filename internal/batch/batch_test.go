package batch_test

import (
	"fmt"
	"strings"
	"testing"

	"libwatch/internal/batch"
	"libwatch/internal/render"
)

func checkCapacity(t *testing.T, batches []batch.Batch) {
	t.Helper()
	for i, b := range batches {
		if len(b.Fields) > batch.MaxFieldsPerBatch {
			t.Errorf("batch %d: %d fields exceeds limit", i, len(b.Fields))
		}
		if b.Chars() > batch.MaxCharsPerBatch {
			t.Errorf("batch %d: %d chars exceeds limit", i, b.Chars())
		}
		for j, f := range b.Fields {
			if len(f.Name) > batch.MaxFieldName {
				t.Errorf("batch %d field %d: name length %d exceeds limit", i, j, len(f.Name))
			}
			if len(f.Value) > batch.MaxFieldValue {
				t.Errorf("batch %d field %d: value length %d exceeds limit", i, j, len(f.Value))
			}
		}
		if len(b.Fields) == 0 {
			t.Errorf("batch %d has zero fields", i)
		}
	}
}

func TestPackSingleSmallBlock(t *testing.T) {
	blocks := []render.NamedBlock{
		{Name: "Movies (2)", Lines: []string{"+ Alpha", "+ Beta"}},
	}

	batches, truncated := batch.Pack("Library Report", "2 changes", blocks)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.Title != "Library Report" || b.Description != "2 changes" {
		t.Fatalf("unexpected batch header: %+v", b)
	}
	if len(b.Fields) != 1 || b.Fields[0].Value != "+ Alpha\n+ Beta" {
		t.Fatalf("unexpected fields: %+v", b.Fields)
	}
	checkCapacity(t, batches)
}

func TestPackSplitsOversizedBlock(t *testing.T) {
	// 50 lines of 40 chars joined by newlines is 2049 chars: two
	// chunks of exactly 1024 each.
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = strings.Repeat("x", 40)
	}
	blocks := []render.NamedBlock{{Name: "TV Shows (50)", Lines: lines}}

	batches, truncated := batch.Pack("Report", "", blocks)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	fields := batches[0].Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Name != "TV Shows (50)" {
		t.Errorf("first chunk name = %q", fields[0].Name)
	}
	if fields[1].Name != "TV Shows (50) (cont. 1)" {
		t.Errorf("second chunk name = %q", fields[1].Name)
	}
	if len(fields[0].Value) != 1024 || len(fields[1].Value) != 1024 {
		t.Errorf("chunk sizes = %d, %d", len(fields[0].Value), len(fields[1].Value))
	}
	checkCapacity(t, batches)
}

func TestPackFieldCountLimit(t *testing.T) {
	// 30 single-field blocks of 200 chars each hit the 25-field limit
	// well before the character limit.
	blocks := make([]render.NamedBlock, 30)
	for i := range blocks {
		blocks[i] = render.NamedBlock{
			Name:  fmt.Sprintf("b%02d", i),
			Lines: []string{strings.Repeat("y", 200)},
		}
	}

	batches, truncated := batch.Pack("Report", "", blocks)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0].Fields) != 25 || len(batches[1].Fields) != 5 {
		t.Fatalf("field split = %d/%d, want 25/5", len(batches[0].Fields), len(batches[1].Fields))
	}
	if batches[1].Title != "Report (cont.)" {
		t.Errorf("continuation title = %q", batches[1].Title)
	}
	if batches[1].Description != "" {
		t.Errorf("continuation carries description %q", batches[1].Description)
	}
	checkCapacity(t, batches)
}

func TestPackBatchCap(t *testing.T) {
	// Fields of ~1030 chars pack five to a batch, so 55 of them would
	// need 11 batches and must be cut at 10.
	blocks := make([]render.NamedBlock, 55)
	for i := range blocks {
		blocks[i] = render.NamedBlock{
			Name:  fmt.Sprintf("b%02d", i),
			Lines: []string{strings.Repeat("z", 1024)},
		}
	}

	batches, truncated := batch.Pack("Report", "", blocks)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(batches) != batch.MaxBatchesPerRun {
		t.Fatalf("expected %d batches, got %d", batch.MaxBatchesPerRun, len(batches))
	}
	checkCapacity(t, batches)
}

func TestPackContentPreservation(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %03d %s", i, strings.Repeat("a", i%60))
	}
	original := strings.Join(lines, "\n")
	blocks := []render.NamedBlock{{Name: "Everything", Lines: lines}}

	batches, truncated := batch.Pack("Report", "", blocks)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	var values []string
	for _, b := range batches {
		for _, f := range b.Fields {
			values = append(values, f.Value)
		}
	}
	if got := strings.Join(values, "\n"); got != original {
		t.Fatalf("reassembled text does not match original:\ngot  %d chars\nwant %d chars", len(got), len(original))
	}
	checkCapacity(t, batches)
}

func TestPackTruncatesOversizedLine(t *testing.T) {
	long := strings.Repeat("w", 3000)
	blocks := []render.NamedBlock{{Name: "One", Lines: []string{long, "short"}}}

	batches, _ := batch.Pack("Report", "", blocks)
	checkCapacity(t, batches)
	first := batches[0].Fields[0].Value
	if !strings.Contains(first, "[line truncated]") {
		t.Fatalf("expected truncation marker in %q", first[len(first)-40:])
	}
}

func TestPackFirstBatchCountsHeaderOverhead(t *testing.T) {
	// With a near-maximal description the first batch can hold a
	// single large field; continuations hold five.
	description := strings.Repeat("d", batch.MaxDescription)
	blocks := make([]render.NamedBlock, 11)
	for i := range blocks {
		blocks[i] = render.NamedBlock{
			Name:  fmt.Sprintf("b%02d", i),
			Lines: []string{strings.Repeat("v", 1024)},
		}
	}

	batches, truncated := batch.Pack("Title", description, blocks)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if len(batches[0].Fields) >= len(batches[1].Fields) {
		t.Fatalf("first batch holds %d fields, continuation %d; header overhead not charged",
			len(batches[0].Fields), len(batches[1].Fields))
	}
	checkCapacity(t, batches)
}

func TestPackTruncatesLongNames(t *testing.T) {
	blocks := []render.NamedBlock{
		{Name: strings.Repeat("n", 400), Lines: []string{"x"}},
	}
	batches, _ := batch.Pack("Report", "", blocks)
	if got := len(batches[0].Fields[0].Name); got != batch.MaxFieldName {
		t.Fatalf("field name length = %d, want %d", got, batch.MaxFieldName)
	}
}

func TestPackEmptyInput(t *testing.T) {
	batches, truncated := batch.Pack("Report", "", nil)
	if len(batches) != 0 || truncated {
		t.Fatalf("expected no batches, got %d (truncated=%v)", len(batches), truncated)
	}
	batches, _ = batch.Pack("Report", "", []render.NamedBlock{{Name: "empty"}})
	if len(batches) != 0 {
		t.Fatalf("block with no lines produced %d batches", len(batches))
	}
}
