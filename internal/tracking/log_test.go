package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/models"
)

func TestEmptyLogIsPending(t *testing.T) {
	t.Parallel()

	var log Log
	if got := log.CurrentStatus(); got != models.StatusPending {
		t.Fatalf("unexpected status: got=%q want=%q", got, models.StatusPending)
	}
	if log.Len() != 0 {
		t.Fatalf("unexpected length: got=%d want=0", log.Len())
	}
	if entries := log.Timeline(); len(entries) != 0 {
		t.Fatalf("expected empty timeline, got %d entries", len(entries))
	}
}

func TestAppendIsMonotonicAndUpdatesCurrentStatus(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	log := NewLog(nil)

	for i, stage := range models.ProductionStages {
		before := log.Len()
		got := log.Append(models.TrackingEvent{Status: stage, Location: "Factory", Time: base.Add(time.Duration(i) * time.Hour)})
		if got != before+1 {
			t.Fatalf("unexpected length after append: got=%d want=%d", got, before+1)
		}
		if log.CurrentStatus() != stage {
			t.Fatalf("unexpected current status: got=%q want=%q", log.CurrentStatus(), stage)
		}
	}
}

func TestNewLogDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	events := make([]models.TrackingEvent, 1, 4)
	events[0] = models.TrackingEvent{Status: models.StageCuttingStarted}

	log := NewLog(events)
	log.Append(models.TrackingEvent{Status: models.StageCuttingCompleted})

	extended := events[:2]
	if extended[1].Status != "" {
		t.Fatalf("append leaked into caller slice: %+v", extended[1])
	}
	if events[0].Status != models.StageCuttingStarted {
		t.Fatalf("prior event mutated: %+v", events[0])
	}
}

func TestAllIsRestartableAndOrdered(t *testing.T) {
	t.Parallel()

	log := NewLog([]models.TrackingEvent{
		{Status: models.StageCuttingStarted},
		{Status: models.StageSewingInProgress},
		{Status: models.StatusShipped},
	})

	for pass := 0; pass < 2; pass++ {
		var got []models.OrderStatus
		for e := range log.All() {
			got = append(got, e.Status)
		}
		want := []models.OrderStatus{models.StageCuttingStarted, models.StageSewingInProgress, models.StatusShipped}
		if len(got) != len(want) {
			t.Fatalf("pass %d: unexpected length: got=%d want=%d", pass, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("pass %d: unexpected event %d: got=%q want=%q", pass, i, got[i], want[i])
			}
		}
	}

	for e := range log.All() {
		if e.Status != models.StageCuttingStarted {
			t.Fatalf("unexpected first event: %q", e.Status)
		}
		break
	}
}

func TestTimelineNewestFirstWithLatestFlag(t *testing.T) {
	t.Parallel()

	log := NewLog([]models.TrackingEvent{
		{Status: models.StageCuttingStarted, Location: "Gazipur"},
		{Status: models.StatusShipped, Location: "Dhaka Hub"},
	})

	entries := log.Timeline()
	if len(entries) != 2 {
		t.Fatalf("unexpected entries: got=%d want=2", len(entries))
	}
	if entries[0].Status != models.StatusShipped || !entries[0].Latest {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Status != models.StageCuttingStarted || entries[1].Latest {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestNewMapViewPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		coords *models.Coordinates
		want   bool
	}{
		{name: "absent", coords: nil, want: false},
		{name: "nan", coords: &models.Coordinates{Lat: math.NaN(), Lng: 90.4}, want: false},
		{name: "valid", coords: &models.Coordinates{Lat: 23.8, Lng: 90.4}, want: true},
	}

	for _, tc := range tests {
		view := NewMapView(tc.coords, "Dhaka Hub")
		if view.Available != tc.want {
			t.Fatalf("%s: unexpected availability: got=%v want=%v", tc.name, view.Available, tc.want)
		}
		if !tc.want && view.Placeholder != MapPlaceholder {
			t.Fatalf("%s: expected placeholder, got %q", tc.name, view.Placeholder)
		}
	}
}

func TestViewOf(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:       uuid.New(),
		Status:   models.StatusShipped,
		Location: "Dhaka Hub",
		TrackingHistory: []models.TrackingEvent{
			{Status: models.StatusShipped, Location: "Dhaka Hub"},
		},
	}

	view := ViewOf(order)
	if view.Phase != models.PhaseShipping {
		t.Fatalf("unexpected phase: got=%q want=%q", view.Phase, models.PhaseShipping)
	}
	if len(view.Timeline) != 1 || !view.Timeline[0].Latest {
		t.Fatalf("unexpected timeline: %+v", view.Timeline)
	}
	if view.Map.Available {
		t.Fatalf("expected map placeholder without coordinates")
	}
}
