package analytics

import (
	"testing"
	"time"

	"github.com/garmentrack/garmentrack/internal/models"
)

type record struct {
	at    time.Time
	total int64
}

func recordAt(r record) time.Time { return r.at }
func recordTotal(r record) int64 { return r.total }

func TestByDayEmptyInputIsZeroed(t *testing.T) {
	t.Parallel()

	for name, buckets := range map[string][]DayBucket{
		"count": CountByDay[record](nil, recordAt, nil),
		"sum":   SumByDay[record](nil, recordAt, recordTotal, nil),
	} {
		if len(buckets) != 7 {
			t.Fatalf("%s: unexpected bucket count: got=%d want=7", name, len(buckets))
		}
		for i, bucket := range buckets {
			if bucket.Day != Weekdays[i] || bucket.Value != 0 {
				t.Fatalf("%s: unexpected bucket %d: %+v", name, i, bucket)
			}
		}
	}
	if Weekdays[0] != "Sun" || Weekdays[6] != "Sat" {
		t.Fatalf("unexpected weekday order: %v", Weekdays)
	}
}

func TestByDayIsDayOfWeekHistogram(t *testing.T) {
	t.Parallel()

	// 2026-03-01 is a Sunday.
	sunday := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []record{
		{at: sunday, total: 100},
		{at: sunday.AddDate(0, 0, 7), total: 50},
		{at: sunday.AddDate(0, 0, 3), total: 25},
		{at: time.Time{}, total: 999},
	}

	counts := CountByDay(records, recordAt, time.UTC)
	if counts[0].Value != 2 {
		t.Fatalf("unexpected Sunday count: got=%d want=2", counts[0].Value)
	}
	if counts[3].Value != 1 {
		t.Fatalf("unexpected Wednesday count: got=%d want=1", counts[3].Value)
	}

	sums := SumByDay(records, recordAt, recordTotal, time.UTC)
	if sums[0].Value != 150 || sums[3].Value != 25 {
		t.Fatalf("unexpected sums: %+v", sums)
	}
	var total int64
	for _, bucket := range sums {
		total += bucket.Value
	}
	if total != 175 {
		t.Fatalf("zero dates should be excluded: got total %d", total)
	}
}

func TestByDayUsesLocation(t *testing.T) {
	t.Parallel()

	dhaka := time.FixedZone("BST", 6*60*60)
	// Saturday 20:00 UTC is Sunday 02:00 in Dhaka.
	records := []record{{at: time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)}}

	if got := CountByDay(records, recordAt, time.UTC); got[6].Value != 1 {
		t.Fatalf("expected Saturday in UTC, got %+v", got)
	}
	if got := CountByDay(records, recordAt, dhaka); got[0].Value != 1 {
		t.Fatalf("expected Sunday in Dhaka, got %+v", got)
	}
}

func TestWindowContainsIsStrict(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		window Window
		age    time.Duration
		want   bool
	}{
		{window: WindowToday, age: 23 * time.Hour, want: true},
		{window: WindowToday, age: 24 * time.Hour, want: false},
		{window: Window7Days, age: 7*24*time.Hour - time.Second, want: true},
		{window: Window7Days, age: 7 * 24 * time.Hour, want: false},
		{window: Window30Days, age: 29 * 24 * time.Hour, want: true},
		{window: Window30Days, age: 31 * 24 * time.Hour, want: false},
	}

	for _, tc := range tests {
		if got := tc.window.Contains(now.Add(-tc.age), now); got != tc.want {
			t.Fatalf("%s with age %s: got=%v want=%v", tc.window, tc.age, got, tc.want)
		}
	}
	if Window7Days.Contains(time.Time{}, now) {
		t.Fatalf("zero time must never be inside a window")
	}
}

func TestParseWindow(t *testing.T) {
	t.Parallel()

	tests := map[string]Window{
		"Today":   WindowToday,
		"7 Days":  Window7Days,
		"30 days": Window30Days,
		"":        Window7Days,
	}
	for raw, want := range tests {
		got, err := ParseWindow(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("unexpected window for %q: got=%q want=%q", raw, got, want)
		}
	}
	if _, err := ParseWindow("90 Days"); err == nil {
		t.Fatalf("expected error for unsupported window")
	}
}

func TestStatusBreakdownDropsUnknownLabels(t *testing.T) {
	t.Parallel()

	orders := []models.Order{
		{Status: models.StatusPending},
		{Status: models.StatusPending},
		{Status: models.StatusApproved},
		{Status: models.StatusShipped},
		{Status: models.StatusCancelled},
		{Status: models.StatusDelivered},
	}

	management := StatusBreakdown(orders, orderStatus, ManagementStatusLabels)
	want := []Slice{{Label: "Approved", Count: 1}, {Label: "Pending", Count: 2}, {Label: "Cancelled", Count: 1}}
	for i := range want {
		if management[i] != want[i] {
			t.Fatalf("unexpected management slice %d: got=%+v want=%+v", i, management[i], want[i])
		}
	}

	buyer := StatusBreakdown(orders, orderStatus, BuyerStatusLabels)
	if buyer[0] != (Slice{Label: "Delivered", Count: 1}) {
		t.Fatalf("unexpected buyer slice: %+v", buyer[0])
	}
}
