package orders

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"
)

const scenarioCSV = "Timestamp,Customer Name,Phone Number,Order Details,Priority,Status,Assigned To\n" +
	"2025-09-22 15:30,John Doe,+1-555-0123,Product inquiry,High,Processing,Team A"

func TestParseCSV_Scenario(t *testing.T) {
	rows := ParseCSV(scenarioCSV)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	rec := Normalize(rows[0])
	if rec.CustomerName != "John Doe" {
		t.Fatalf("expected customer John Doe, got %q", rec.CustomerName)
	}
	if rec.Priority != "High" || rec.Status != "Processing" {
		t.Fatalf("unexpected priority/status: %q/%q", rec.Priority, rec.Status)
	}
	if rec.AssignedTo != "Team A" || rec.Phone != "+1-555-0123" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestParseCSV_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n", " \r\n\t"} {
		if rows := ParseCSV(in); len(rows) != 0 {
			t.Fatalf("expected no rows for %q, got %d", in, len(rows))
		}
	}
}

func TestParseCSV_RowCountMatchesDataLines(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b,c")
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "\n%d,x,y", i)
	}
	rows := ParseCSV(b.String())
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if len(r) != 3 {
			t.Fatalf("expected 3 keys per row, got %v", r)
		}
	}
}

func TestParseCSV_ShortLinesAndQuotes(t *testing.T) {
	rows := ParseCSV("\"Name\" , Status ,Extra\r\n \"Ann\" ,done")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := RawRow{"Name": "Ann", "Status": "done", "Extra": ""}
	if !reflect.DeepEqual(rows[0], want) {
		t.Fatalf("expected %v, got %v", want, rows[0])
	}
}

func TestParseCSV_DuplicateHeaderLastWins(t *testing.T) {
	rows := ParseCSV("Status,Status\nfirst,second")
	if got := rows[0]["Status"]; got != "second" {
		t.Fatalf("expected last duplicate to win, got %q", got)
	}
}

func TestParseCSVStrict_Empty(t *testing.T) {
	if _, err := ParseCSVStrict("  \n "); err != ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	rows, err := ParseCSVStrict("Timestamp,Status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected header-only document to give 0 rows, got %d", len(rows))
	}
}

func TestNormalize_DefaultsNeverEmpty(t *testing.T) {
	for _, row := range []RawRow{nil, {}, {"Customer Name": "  ", "Unrelated": "x"}} {
		rec := Normalize(row)
		want := Record{
			Timestamp:    "N/A",
			CustomerName: "N/A",
			Phone:        "N/A",
			Details:      "N/A",
			Priority:     "medium",
			Status:       "pending",
			AssignedTo:   "Unassigned",
		}
		if rec != want {
			t.Fatalf("expected defaults %+v, got %+v", want, rec)
		}
	}
}

func TestNormalize_AliasOrder(t *testing.T) {
	rec := Normalize(RawRow{
		"Customer Name": "",
		"customer_name": "snake",
		"Customer":      "short",
		"Phone":         "555",
		"phone_number":  "777",
		"assigned_to":   "Team Z",
		"details":       "lower",
		"status":        "Completed",
	})
	if rec.CustomerName != "snake" {
		t.Fatalf("expected first non-empty alias, got %q", rec.CustomerName)
	}
	if rec.Phone != "777" {
		t.Fatalf("expected phone_number to precede Phone, got %q", rec.Phone)
	}
	if rec.AssignedTo != "Team Z" || rec.Details != "lower" || rec.Status != "Completed" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestSuccessRate(t *testing.T) {
	recs := []Record{
		{Status: "Completed"},
		{Status: "processed"},
		{Status: "Pending"},
		{Status: "failed"},
	}
	if got := SuccessRate(recs); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := SuccessRate(nil); got != 0 {
		t.Fatalf("expected 0 for empty set, got %d", got)
	}
	if got := SuccessRate([]Record{{Status: "COMPLETED"}, {Status: "x"}, {Status: "y"}}); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
}

func TestCountToday(t *testing.T) {
	now := time.Date(2025, 9, 22, 18, 0, 0, 0, time.Local)
	recs := []Record{
		{Timestamp: "2025-09-22 15:30"},
		{Timestamp: "9/22/2025 08:01:02"},
		{Timestamp: "2025-09-21 23:59"},
		{Timestamp: "not a date"},
		{Timestamp: "N/A"},
	}
	if got := CountToday(recs, now); got != 2 {
		t.Fatalf("expected 2 records today, got %d", got)
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2025, 9, 22, 18, 0, 0, 0, time.Local)
	recs := []Record{
		{Timestamp: "2025-09-22 15:30", Status: "Processing"},
		{Timestamp: "2025-09-22 14:45", Status: "Completed"},
		{Timestamp: "2025-09-20 13:20", Status: "Pending"},
	}
	stats := Aggregate(recs, now, rand.New(rand.NewSource(7)))
	if stats.Total != 3 || stats.Today != 2 || stats.SuccessRate != 33 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AvgProcessingSeconds < mockProcessingMin || stats.AvgProcessingSeconds > mockProcessingMax {
		t.Fatalf("mock processing time out of range: %d", stats.AvgProcessingSeconds)
	}

	empty := Aggregate(nil, now, nil)
	if empty != (Stats{}) {
		t.Fatalf("expected zero stats for empty set, got %+v", empty)
	}
}

func TestRenderTable_CapOrderAndTruncation(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	recs := []Record{{Timestamp: "garbage", Details: strings.Repeat("d", 80), Priority: "High", Status: "Completed"}}
	for i := 0; i < 25; i++ {
		recs = append(recs, Record{
			Timestamp: base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04"),
			Details:   strings.Repeat("x", 40+i),
			Priority:  "Low",
			Status:    "Pending",
		})
	}

	rows := RenderTable(recs, 0)
	if len(rows) != TableLimit {
		t.Fatalf("expected %d rows, got %d", TableLimit, len(rows))
	}
	if rows[0].Timestamp != base.Add(24*time.Hour).Format("2006-01-02 15:04") {
		t.Fatalf("expected newest first, got %q", rows[0].Timestamp)
	}
	for i := 1; i < len(rows); i++ {
		prev, _ := ParseTimestamp(rows[i-1].Timestamp)
		cur, _ := ParseTimestamp(rows[i].Timestamp)
		if cur.After(prev) {
			t.Fatalf("rows out of order at %d", i)
		}
	}
	for _, r := range rows {
		if len([]rune(r.DetailsShort)) > DetailsMaxLen+3 {
			t.Fatalf("details too long: %d", len(r.DetailsShort))
		}
		if r.PriorityClass != "priority-low" || r.StatusClass != "status-pending" {
			t.Fatalf("unexpected classes: %q %q", r.PriorityClass, r.StatusClass)
		}
	}

	if n := len(RenderTable(recs, 100)); n != TableLimit {
		t.Fatalf("expected limit above %d to be capped, got %d rows", TableLimit, n)
	}
	if n := len(RenderTable(recs, 5)); n != 5 {
		t.Fatalf("expected 5 rows, got %d", n)
	}

	few := RenderTable(recs[:6], 0)
	last := few[len(few)-1]
	if last.Timestamp != "garbage" || last.DisplayTime != "garbage" {
		t.Fatalf("expected unparseable timestamp to sort last, got %+v", last.Record)
	}
	if last.DetailsShort != strings.Repeat("d", 50)+"..." {
		t.Fatalf("unexpected truncation: %q", last.DetailsShort)
	}
	if last.PriorityClass != "priority-high" || last.StatusClass != "status-completed" {
		t.Fatalf("unexpected classes: %q %q", last.PriorityClass, last.StatusClass)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "short"},
		{strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{strings.Repeat("a", 51), strings.Repeat("a", 50) + "..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, 50); got != tt.want {
			t.Fatalf("Truncate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToCSV_RoundTrip(t *testing.T) {
	recs := []Record{
		{Timestamp: "2025-09-22 15:30", CustomerName: "John Doe", Phone: "+1-555-0123", Details: "Product inquiry", Priority: "High", Status: "Processing", AssignedTo: "Team A"},
		{Timestamp: "2025-09-22 14:45", CustomerName: "Jane Smith", Phone: "+1-555-0124", Details: "Support request", Priority: "Medium", Status: "Completed", AssignedTo: "Team B"},
	}
	got := NormalizeAll(ParseCSV(ToCSV(recs)))
	if !reflect.DeepEqual(got, recs) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", recs, got)
	}
}

func TestToCSV_IDFromLaterRecord(t *testing.T) {
	recs := []Record{
		{Timestamp: "2025-09-22 15:30", CustomerName: "John Doe", Phone: "+1-555-0123", Details: "Product inquiry", Priority: "High", Status: "Processing", AssignedTo: "Team A"},
		{ID: "2", Timestamp: "2025-09-22 14:45", CustomerName: "Jane Smith", Phone: "+1-555-0124", Details: "Support request", Priority: "Medium", Status: "Completed", AssignedTo: "Team B"},
	}
	out := ToCSV(recs)
	if !strings.HasSuffix(strings.SplitN(out, "\n", 2)[0], ",ID") {
		t.Fatalf("expected ID column in header:\n%s", out)
	}
	got := NormalizeAll(ParseCSV(out))
	if !reflect.DeepEqual(got, recs) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", recs, got)
	}
}

func TestToCSV_Format(t *testing.T) {
	if ToCSV(nil) != "" {
		t.Fatal("expected empty export for no records")
	}
	out := ToCSV([]Record{{ID: "1", Timestamp: "t", CustomerName: "c", Phone: "p", Details: "d", Priority: "hi", Status: "s", AssignedTo: "a"}})
	want := "Timestamp,Customer Name,Phone Number,Order Details,Priority,Status,Assigned To,ID\n" +
		`"t","c","p","d","hi","s","a","1"`
	if out != want {
		t.Fatalf("unexpected export:\n%s", out)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 9, 22, 23, 30, 0, 0, time.UTC)
	if got := ExportFilename(now); got != "customer-orders-2025-09-22.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
