// Package status classifies tracked shows into airing-lifecycle
// categories from Trakt metadata and maps them onto the snapshot
// encoding the diff engine works with.
//
// The numeric encoding is part of the snapshot format: a show's
// category ordinal is stored as the snapshot count and its next air
// date as the value (fractional days since the Unix epoch). A category
// move therefore surfaces as a count change while a rescheduled air
// date with an unchanged category surfaces as a value change.
package status

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"libwatch/internal/services/trakt"
)

// Category is a show's place in the airing lifecycle. Ordinals are
// persisted in snapshots and must stay stable.
type Category int

const (
	CategoryUnknown         Category = 0
	CategoryReturning       Category = 1
	CategorySeasonPremiere  Category = 2
	CategoryAiring          Category = 3
	CategoryMidSeasonFinale Category = 4
	CategorySeasonFinale    Category = 5
	CategoryFinalEpisode    Category = 6
	CategoryEnded           Category = 7
	CategoryCancelled       Category = 8
)

var categoryKeys = map[Category]string{
	CategoryUnknown:         "UNKNOWN",
	CategoryReturning:       "RETURNING",
	CategorySeasonPremiere:  "SEASON_PREMIERE",
	CategoryAiring:          "AIRING",
	CategoryMidSeasonFinale: "MID_SEASON_FINALE",
	CategorySeasonFinale:    "SEASON_FINALE",
	CategoryFinalEpisode:    "FINAL_EPISODE",
	CategoryEnded:           "ENDED",
	CategoryCancelled:       "CANCELLED",
}

// Key returns the stable upper-snake identifier used for color
// configuration and grouping.
func (c Category) Key() string {
	if key, ok := categoryKeys[c]; ok {
		return key
	}
	return "UNKNOWN"
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the human form of the category key,
// e.g. "Season Premiere".
func (c Category) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(c.Key()), "_", " "))
}

// FromCount maps a snapshot count back to its category. Out-of-range
// values map to CategoryUnknown.
func FromCount(count int) Category {
	c := Category(count)
	if _, ok := categoryKeys[c]; !ok {
		return CategoryUnknown
	}
	return c
}

// airDateLayout matches Trakt's first_aired timestamps.
const airDateLayout = "2006-01-02T15:04:05.000Z"

// ParseAirDate parses a Trakt first_aired value. Returns the zero time
// for empty or malformed input.
func ParseAirDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(airDateLayout, value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

// EncodeAirDate converts an air date to the snapshot value: fractional
// days since the Unix epoch, 0 for the zero time.
func EncodeAirDate(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) / 86400.0
}

// Classify derives a show's category from its Trakt details and next
// scheduled episode, plus the air date that drove the decision (zero
// when none applies). Shows in states the tracker does not follow
// (in production, planned, ...) classify as CategoryUnknown.
func Classify(show *trakt.Show, next *trakt.Episode) (Category, time.Time) {
	if show == nil {
		return CategoryUnknown, time.Time{}
	}
	switch strings.ToLower(strings.TrimSpace(show.Status)) {
	case "ended":
		return CategoryEnded, time.Time{}
	case "canceled", "cancelled":
		return CategoryCancelled, time.Time{}
	case "returning series":
	default:
		return CategoryUnknown, time.Time{}
	}

	if next == nil {
		return CategoryReturning, time.Time{}
	}
	airDate := ParseAirDate(next.FirstAired)
	if airDate.IsZero() {
		return CategoryReturning, time.Time{}
	}

	switch strings.ToLower(strings.TrimSpace(next.EpisodeType)) {
	case "season_premiere":
		return CategorySeasonPremiere, airDate
	case "mid_season_finale":
		return CategoryMidSeasonFinale, airDate
	case "season_finale":
		return CategorySeasonFinale, airDate
	case "series_finale":
		return CategoryFinalEpisode, airDate
	default:
		return CategoryAiring, airDate
	}
}

// spacedLetters renders terminal states the way the overlays show
// them, e.g. "E N D E D".
func spacedLetters(word string) string {
	letters := strings.Split(word, "")
	return strings.Join(letters, " ")
}

// OverlayText renders the overlay caption for a category: dated
// categories carry the air date as DD/MM in the given location,
// terminal ones are letter-spaced.
func OverlayText(c Category, airDate time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	switch c {
	case CategoryEnded:
		return spacedLetters("ENDED")
	case CategoryCancelled:
		return spacedLetters("CANCELLED")
	case CategoryReturning:
		return spacedLetters("RETURNING")
	case CategoryUnknown:
		return ""
	}
	if airDate.IsZero() {
		return strings.ReplaceAll(c.Key(), "_", " ")
	}
	dateStr := airDate.In(loc).Format("02/01")
	return fmt.Sprintf("%s %s", strings.ReplaceAll(c.Key(), "_", " "), dateStr)
}
