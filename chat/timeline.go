package chat

import (
	"time"

	"github.com/socialitehq/socialite/models"
)

// DaySeparator is a display-only marker inserted before the first message of
// each calendar day.
type DaySeparator struct {
	Day   time.Time
	Label string
}

// TimelineEntry is either a message or a day separator, never both.
type TimelineEntry struct {
	Message   *models.ChatMessage
	Separator *DaySeparator
}

// Timeline derives the display sequence for a message list: ascending by
// timestamp with one separator per distinct calendar day. Pure; the same
// input always yields the same output, and re-deriving from its own
// non-separator entries changes nothing.
func Timeline(msgs []models.ChatMessage, now time.Time) []TimelineEntry {
	sorted := make([]models.ChatMessage, len(msgs))
	copy(sorted, msgs)
	sortAscending(sorted)

	loc := now.Location()
	entries := make([]TimelineEntry, 0, len(sorted)*2)
	seenDays := make(map[string]struct{})
	for i := range sorted {
		local := sorted[i].CreatedAt.In(loc)
		dayID := local.Format("2006-01-02")
		if _, ok := seenDays[dayID]; !ok {
			seenDays[dayID] = struct{}{}
			day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
			entries = append(entries, TimelineEntry{Separator: &DaySeparator{
				Day:   day,
				Label: dayLabel(day, now),
			}})
		}
		entries = append(entries, TimelineEntry{Message: &sorted[i]})
	}
	return entries
}

func dayLabel(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("2/1/2006")
	}
}
