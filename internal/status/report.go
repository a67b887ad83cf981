package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"libwatch/internal/diff"
	"libwatch/internal/render"
)

// groupNames are the report section headings per category.
var groupNames = map[Category]string{
	CategoryAiring:          "Now Airing",
	CategorySeasonPremiere:  "Season Premieres",
	CategorySeasonFinale:    "Season Finales",
	CategoryMidSeasonFinale: "Mid-Season Finales",
	CategoryFinalEpisode:    "Series Finales",
	CategoryReturning:       "Returning Shows",
	CategoryEnded:           "Ended Shows",
	CategoryCancelled:       "Cancelled Shows",
}

// groupDateChanged collects shows whose category held but whose air
// date moved.
const groupDateChanged = "Date Changes"

// groupRank orders report sections most interesting first.
var groupRank = map[string]int{
	"Now Airing":         0,
	"Season Premieres":   1,
	"Season Finales":     2,
	"Mid-Season Finales": 3,
	"Series Finales":     4,
	"Returning Shows":    5,
	groupDateChanged:     6,
	"Ended Shows":        7,
	"Cancelled Shows":    8,
}

// GroupName returns the report heading for the category.
func (c Category) GroupName() string {
	if name, ok := groupNames[c]; ok {
		return name
	}
	return c.DisplayName()
}

// DecodeAirDate converts a snapshot value back to the air date it
// encodes. Non-positive values decode to the zero time.
func DecodeAirDate(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(math.Round(v*86400)), 0).UTC()
}

func itemID(library, title string) string {
	return library + "/" + title
}

func splitID(id string) (library, title string) {
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// reportGroup maps a diff record to its report section. Category moves
// land in the new category's section; a date move with an unchanged
// category is a date change.
func reportGroup(rec diff.Record) string {
	switch rec.Kind {
	case diff.KindValueChanged:
		return groupDateChanged
	case diff.KindRemoved:
		return "Removed"
	default:
		return FromCount(rec.CurrentCount).GroupName()
	}
}

// reportLine renders one record for the given display timezone. Shows
// leaving the library are not announced, and shows first seen in a
// terminal state are not news either.
func reportLine(loc *time.Location) func(diff.Record) string {
	return func(rec diff.Record) string {
		_, title := splitID(rec.ID)
		switch rec.Kind {
		case diff.KindRemoved:
			return ""
		case diff.KindValueChanged:
			return fmt.Sprintf("• %s - New date: %s", title, DecodeAirDate(rec.CurrentValue).In(loc).Format("02/01"))
		}

		category := FromCount(rec.CurrentCount)
		if category == CategoryEnded || category == CategoryCancelled {
			if rec.Kind == diff.KindNew {
				return ""
			}
			return fmt.Sprintf("• %s - %s", title, category.DisplayName())
		}
		if airDate := DecodeAirDate(rec.CurrentValue); !airDate.IsZero() {
			return fmt.Sprintf("• %s (%s)", title, airDate.In(loc).Format("02/01"))
		}
		return "• " + title
	}
}

// orderBlocks sorts report sections into the fixed display order,
// leaving unknown names at the end in their existing order.
func orderBlocks(blocks []render.NamedBlock) {
	rank := func(name string) int {
		if i := strings.LastIndex(name, " ("); i >= 0 {
			name = name[:i]
		}
		if r, ok := groupRank[name]; ok {
			return r
		}
		return len(groupRank)
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return rank(blocks[i].Name) < rank(blocks[j].Name)
	})
}
