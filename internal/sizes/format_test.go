package sizes

import (
	"testing"

	"libwatch/internal/diff"
)

func TestFormatFilesize(t *testing.T) {
	cases := []struct {
		gb   float64
		want string
	}{
		{12.4, "12.40 GB"},
		{999.99, "999.99 GB"},
		{1000, "0.98 TB"},
		{2048, "2.00 TB"},
		{0, "0.00 GB"},
	}
	for _, tc := range cases {
		if got := FormatFilesize(tc.gb); got != tc.want {
			t.Errorf("FormatFilesize(%v) = %q, want %q", tc.gb, got, tc.want)
		}
	}
}

func TestItemIDRoundTrip(t *testing.T) {
	id := itemID("Movies", "Face/Off")
	library, title := splitID(id)
	if library != "Movies" || title != "Face/Off" {
		t.Fatalf("splitID(%q) = %q, %q", id, library, title)
	}
}

func TestChangeLines(t *testing.T) {
	cases := []struct {
		name string
		rec  diff.Record
		want string
	}{
		{
			name: "new movie",
			rec:  diff.Record{ID: "Movies/Alpha", Kind: diff.KindNew, CurrentValue: 24.5},
			want: "• NEW: Alpha - 24.50 GB",
		},
		{
			name: "new show",
			rec:  diff.Record{ID: "TV Shows/Beta", Kind: diff.KindNew, CurrentValue: 40, CurrentCount: 8},
			want: "• NEW: Beta (8 episodes) - 40.00 GB",
		},
		{
			name: "new episodes",
			rec: diff.Record{
				ID: "TV Shows/Beta", Kind: diff.KindCountIncreased,
				PreviousValue: 40, CurrentValue: 45.5, PreviousCount: 8, CurrentCount: 10,
			},
			want: "• NEW EPISODES: Beta (10 episodes, +2 new) - 40.00 GB → 45.50 GB (+5.50 GB)",
		},
		{
			name: "quality change movie",
			rec: diff.Record{
				ID: "Movies/Alpha", Kind: diff.KindValueChanged,
				PreviousValue: 24.5, CurrentValue: 12.1,
			},
			want: "• QUALITY CHANGE: Alpha - 24.50 GB → 12.10 GB (-12.40 GB)",
		},
		{
			name: "removed episodes",
			rec: diff.Record{
				ID: "TV Shows/Beta", Kind: diff.KindCountDecreased,
				PreviousValue: 45.5, CurrentValue: 40, PreviousCount: 10, CurrentCount: 8,
			},
			want: "• REMOVED EPISODES: Beta (8 episodes, 2 removed) - 45.50 GB → 40.00 GB (-5.50 GB)",
		},
		{
			name: "removed show",
			rec: diff.Record{
				ID: "TV Shows/Beta", Kind: diff.KindRemoved,
				PreviousValue: 45.5, PreviousCount: 10,
			},
			want: "• REMOVED: Beta (10 episodes) - 45.50 GB",
		},
	}
	for _, tc := range cases {
		if got := changeLine(tc.rec); got != tc.want {
			t.Errorf("%s:\n got %q\nwant %q", tc.name, got, tc.want)
		}
	}
}

func TestReportTitlePriority(t *testing.T) {
	cases := []struct {
		counts changeCounts
		want   string
	}{
		{changeCounts{added: 1, newEpisodes: 1}, "Library Sizes - New Media and Episodes"},
		{changeCounts{added: 2}, "Library Sizes - New Media Added"},
		{changeCounts{newEpisodes: 1}, "Library Sizes - New Episodes Added"},
		{changeCounts{removed: 1}, "Library Sizes - Media Removed"},
		{changeCounts{removedEpisodes: 1}, "Library Sizes - Media Removed"},
		{changeCounts{quality: 3}, "Library Sizes - Quality Changes"},
	}
	for _, tc := range cases {
		if got := reportTitle(tc.counts); got != tc.want {
			t.Errorf("reportTitle(%+v) = %q, want %q", tc.counts, got, tc.want)
		}
	}
}

func TestReportDescription(t *testing.T) {
	counts := changeCounts{added: 2, quality: 1}
	got := reportDescription(counts, 12.4)
	want := "Detected 2 new items, and 1 quality change. Total change: +12.40 GB"
	if got != want {
		t.Errorf("description:\n got %q\nwant %q", got, want)
	}

	got = reportDescription(changeCounts{removed: 1}, -3.25)
	want = "Detected 1 removed item. Total change: -3.25 GB"
	if got != want {
		t.Errorf("description:\n got %q\nwant %q", got, want)
	}
}
