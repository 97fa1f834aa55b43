package orders

import (
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// TableLimit is the number of most recent records shown in the table.
	TableLimit = 20
	// DetailsMaxLen caps the details column, in runes, before the ellipsis.
	DetailsMaxLen = 50

	displayTimeLayout = "2006-01-02 15:04:05"
)

// RenderTable returns the most recent records as table rows, newest first,
// capped at limit. A limit outside 1..TableLimit means TableLimit. Records with unparseable
// timestamps sort after all dated ones and keep their input order.
func RenderTable(records []Record, limit int) []Row {
	if limit <= 0 || limit > TableLimit {
		limit = TableLimit
	}

	type keyed struct {
		rec Record
		at  time.Time
		ok  bool
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		t, ok := ParseTimestamp(r.Timestamp)
		items[i] = keyed{rec: r, at: t, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.at.After(b.at)
	})

	if len(items) > limit {
		items = items[:limit]
	}

	lower := cases.Lower(language.Und)
	out := make([]Row, 0, len(items))
	for _, it := range items {
		display := it.rec.Timestamp
		if it.ok {
			display = it.at.Format(displayTimeLayout)
		}
		out = append(out, Row{
			Record:        it.rec,
			DisplayTime:   display,
			DetailsShort:  Truncate(it.rec.Details, DetailsMaxLen),
			PriorityClass: "priority-" + lower.String(it.rec.Priority),
			StatusClass:   "status-" + lower.String(it.rec.Status),
		})
	}
	return out
}

// Truncate shortens s to max runes and appends "..." when it was longer.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
