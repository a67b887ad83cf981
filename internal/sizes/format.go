// Package sizes implements the library size watcher: it snapshots
// per-item media footprints from Plex, diffs them against the previous
// run, and turns the result into notifications and Kometa overlays.
package sizes

import (
	"fmt"
	"math"
	"strings"

	"libwatch/internal/diff"
)

// Domain identifies this watcher in snapshots, locks, and run history.
const Domain = "sizes"

const bytesPerGB = 1024 * 1024 * 1024

// itemID builds the snapshot key "library/title". Titles may contain
// slashes; only the first separator is structural.
func itemID(library, title string) string {
	return library + "/" + title
}

func splitID(id string) (library, title string) {
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

func roundGB(bytes int64) float64 {
	return math.Round(float64(bytes)/bytesPerGB*100) / 100
}

// FormatFilesize renders a size in GB, switching to TB at 1000 GB.
func FormatFilesize(gb float64) string {
	if gb >= 1000 {
		return fmt.Sprintf("%.2f TB", gb/1024)
	}
	return fmt.Sprintf("%.2f GB", gb)
}

func sign(v float64) string {
	if v > 0 {
		return "+"
	}
	return ""
}

// changeLine renders one diff record as a report line. Records with an
// episode count are shows; the rest are movies.
func changeLine(rec diff.Record) string {
	_, title := splitID(rec.ID)
	dv := rec.ValueDelta()

	switch rec.Kind {
	case diff.KindNew:
		episodes := ""
		if rec.CurrentCount > 0 {
			episodes = fmt.Sprintf(" (%d episodes)", rec.CurrentCount)
		}
		return fmt.Sprintf("• NEW: %s%s - %s", title, episodes, FormatFilesize(rec.CurrentValue))
	case diff.KindCountIncreased:
		return fmt.Sprintf("• NEW EPISODES: %s (%d episodes, +%d new) - %.2f GB → %.2f GB (%s%.2f GB)",
			title, rec.CurrentCount, rec.CountDelta(), rec.PreviousValue, rec.CurrentValue, sign(dv), dv)
	case diff.KindValueChanged:
		episodes := ""
		if rec.CurrentCount > 0 {
			episodes = fmt.Sprintf(" (%d episodes)", rec.CurrentCount)
		}
		return fmt.Sprintf("• QUALITY CHANGE: %s%s - %.2f GB → %.2f GB (%s%.2f GB)",
			title, episodes, rec.PreviousValue, rec.CurrentValue, sign(dv), dv)
	case diff.KindCountDecreased:
		return fmt.Sprintf("• REMOVED EPISODES: %s (%d episodes, %d removed) - %.2f GB → %.2f GB (%s%.2f GB)",
			title, rec.CurrentCount, -rec.CountDelta(), rec.PreviousValue, rec.CurrentValue, sign(dv), dv)
	case diff.KindRemoved:
		episodes := ""
		if rec.PreviousCount > 0 {
			episodes = fmt.Sprintf(" (%d episodes)", rec.PreviousCount)
		}
		return fmt.Sprintf("• REMOVED: %s%s - %.2f GB", title, episodes, rec.PreviousValue)
	}
	return ""
}

// reportTitle picks the notification title from the change mix, most
// newsworthy first.
func reportTitle(entry changeCounts) string {
	switch {
	case entry.added > 0 && entry.newEpisodes > 0:
		return "Library Sizes - New Media and Episodes"
	case entry.added > 0:
		return "Library Sizes - New Media Added"
	case entry.newEpisodes > 0:
		return "Library Sizes - New Episodes Added"
	case entry.removed > 0 || entry.removedEpisodes > 0:
		return "Library Sizes - Media Removed"
	case entry.quality > 0:
		return "Library Sizes - Quality Changes"
	default:
		return "Library Sizes - Changes Detected"
	}
}

type changeCounts struct {
	added           int
	newEpisodes     int
	quality         int
	removedEpisodes int
	removed         int
}

func countChanges(records []diff.Record) changeCounts {
	var c changeCounts
	for _, rec := range records {
		switch rec.Kind {
		case diff.KindNew:
			c.added++
		case diff.KindCountIncreased:
			c.newEpisodes++
		case diff.KindValueChanged:
			c.quality++
		case diff.KindCountDecreased:
			c.removedEpisodes++
		case diff.KindRemoved:
			c.removed++
		}
	}
	return c
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

// reportDescription summarizes the change mix and the total size delta,
// e.g. "Detected 2 new items and 1 quality change. Total change: +12.40 GB".
func reportDescription(counts changeCounts, totalDelta float64) string {
	var parts []string
	if counts.added > 0 {
		parts = append(parts, fmt.Sprintf("%d new %s", counts.added, plural(counts.added, "item", "items")))
	}
	if counts.newEpisodes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s with new episodes", counts.newEpisodes, plural(counts.newEpisodes, "show", "shows")))
	}
	if counts.removedEpisodes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s with removed episodes", counts.removedEpisodes, plural(counts.removedEpisodes, "show", "shows")))
	}
	if counts.quality > 0 {
		parts = append(parts, fmt.Sprintf("%d quality %s", counts.quality, plural(counts.quality, "change", "changes")))
	}
	if counts.removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed %s", counts.removed, plural(counts.removed, "item", "items")))
	}

	summary := "changes"
	switch len(parts) {
	case 0:
	case 1:
		summary = parts[0]
	default:
		summary = strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
	return fmt.Sprintf("Detected %s. Total change: %s%s", summary, sign(totalDelta), FormatFilesize(totalDelta))
}
