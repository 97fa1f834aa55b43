package orders

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Mock processing time bounds, in seconds (inclusive).
const (
	mockProcessingMin = 5
	mockProcessingMax = 34
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

// ParseTimestamp parses the free-form timestamp of a record in the local zone.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Aggregate computes dashboard statistics. rng feeds the mock processing time;
// a nil rng uses a time-seeded source.
func Aggregate(records []Record, now time.Time, rng *rand.Rand) Stats {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return Stats{
		Total:                len(records),
		Today:                CountToday(records, now),
		AvgProcessingSeconds: mockAverageProcessing(len(records), rng),
		SuccessRate:          SuccessRate(records),
	}
}

// CountToday counts records whose timestamp falls on now's calendar day.
// Unparseable timestamps never match.
func CountToday(records []Record, now time.Time) int {
	y, m, d := now.Date()
	n := 0
	for _, r := range records {
		t, ok := ParseTimestamp(r.Timestamp)
		if !ok {
			continue
		}
		ty, tm, td := t.In(now.Location()).Date()
		if ty == y && tm == m && td == d {
			n++
		}
	}
	return n
}

// SuccessRate returns the rounded percentage of completed or processed
// records, 0 for an empty set.
func SuccessRate(records []Record) int {
	if len(records) == 0 {
		return 0
	}
	fold := cases.Fold()
	ok := 0
	for _, r := range records {
		switch fold.String(strings.TrimSpace(r.Status)) {
		case "completed", "processed":
			ok++
		}
	}
	return int(math.Round(100 * float64(ok) / float64(len(records))))
}

func mockAverageProcessing(n int, rng *rand.Rand) int {
	if n == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		sum += mockProcessingMin + rng.Intn(mockProcessingMax-mockProcessingMin+1)
	}
	return int(math.Round(float64(sum) / float64(n)))
}
