// Package analytics turns order, product and user collections into chart series.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

type Window string

const (
	WindowToday  Window = "Today"
	Window7Days  Window = "7 Days"
	Window30Days Window = "30 Days"
)

func ParseWindow(raw string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "7 days", "7d", "week":
		return Window7Days, nil
	case "today", "1d":
		return WindowToday, nil
	case "30 days", "30d", "month":
		return Window30Days, nil
	default:
		return "", fmt.Errorf("unknown analytics window: %q", raw)
	}
}

// Days is N in "strictly less than N days old".
func (w Window) Days() int {
	switch w {
	case WindowToday:
		return 1
	case Window30Days:
		return 30
	default:
		return 7
	}
}

// Contains reports whether ts is younger than the window at now.
// Zero timestamps are never contained.
func (w Window) Contains(ts, now time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) < time.Duration(w.Days())*24*time.Hour
}

// InWindow keeps the records whose own timestamp falls inside the window.
func InWindow[T any](records []T, date func(T) time.Time, w Window, now time.Time) []T {
	kept := make([]T, 0, len(records))
	for _, record := range records {
		if w.Contains(date(record), now) {
			kept = append(kept, record)
		}
	}
	return kept
}

// Weekdays are the fixed bucket labels, Sunday first.
var Weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type DayBucket struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

// ByDay is a day-of-week histogram: every record lands in the bucket of its
// weekday in loc, regardless of which calendar week it belongs to. A nil value
// function counts records. Records with a zero date are skipped.
func ByDay[T any](records []T, date func(T) time.Time, value func(T) int64, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make([]DayBucket, len(Weekdays))
	for i, label := range Weekdays {
		buckets[i].Day = label
	}

	for _, record := range records {
		ts := date(record)
		if ts.IsZero() {
			continue
		}
		amount := int64(1)
		if value != nil {
			amount = value(record)
		}
		buckets[ts.In(loc).Weekday()].Value += amount
	}
	return buckets
}

func CountByDay[T any](records []T, date func(T) time.Time, loc *time.Location) []DayBucket {
	return ByDay(records, date, nil, loc)
}

func SumByDay[T any](records []T, date func(T) time.Time, value func(T) int64, loc *time.Location) []DayBucket {
	if value == nil {
		value = func(T) int64 { return 0 }
	}
	return ByDay(records, date, value, loc)
}

type Slice struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

var (
	ManagementStatusLabels = []string{"Approved", "Pending", "Cancelled"}
	BuyerStatusLabels      = []string{"Delivered", "Pending", "Cancelled"}
)

// StatusBreakdown counts records per label in the order labels are given.
// Statuses outside labels are dropped.
func StatusBreakdown[T any](records []T, status func(T) string, labels []string) []Slice {
	index := make(map[string]int, len(labels))
	slices := make([]Slice, len(labels))
	for i, label := range labels {
		index[label] = i
		slices[i].Label = label
	}

	for _, record := range records {
		if i, ok := index[status(record)]; ok {
			slices[i].Count++
		}
	}
	return slices
}
