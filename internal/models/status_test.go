package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    OrderStatus
		wantErr bool
	}{
		{name: "exact label", raw: "Sewing in Progress", want: StageSewingInProgress},
		{name: "case and whitespace", raw: "  qc (quality check) ", want: StageQualityCheck},
		{name: "pending", raw: "pending", want: StatusPending},
		{name: "partial label rejected", raw: "Cutting", wantErr: true},
		{name: "substring of shipping rejected", raw: "ship", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOrderStatus(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got status %q", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected status: got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status OrderStatus
		want   Phase
	}{
		{status: StatusPending, want: PhasePending},
		{status: StatusApproved, want: PhaseApproved},
		{status: StageCuttingStarted, want: PhaseProduction},
		{status: StageQualityCheck, want: PhaseProduction},
		{status: StageReadyForShipment, want: PhaseShipping},
		{status: StatusShipped, want: PhaseShipping},
		{status: StatusDelivered, want: PhaseDelivered},
		{status: StatusCancelled, want: PhaseClosed},
		{status: StatusRejected, want: PhaseClosed},
		{status: OrderStatus("Cutting shipped"), want: PhaseUnknown},
	}

	for _, tc := range tests {
		if got := ClassifyStatus(tc.status); got != tc.want {
			t.Fatalf("unexpected phase for %q: got=%q want=%q", tc.status, got, tc.want)
		}
	}
}

func TestProductionStagesAreOrderedAndNonTerminalUntilDelivered(t *testing.T) {
	t.Parallel()

	if len(ProductionStages) != 9 {
		t.Fatalf("unexpected stage count: got=%d want=9", len(ProductionStages))
	}
	if ProductionStages[0] != StageCuttingStarted || ProductionStages[len(ProductionStages)-1] != StatusDelivered {
		t.Fatalf("unexpected stage bounds: %v", ProductionStages)
	}
	for i, stage := range ProductionStages {
		if StageIndex(stage) != i {
			t.Fatalf("unexpected index for %q: got=%d want=%d", stage, StageIndex(stage), i)
		}
		if stage != StatusDelivered && stage.IsTerminal() {
			t.Fatalf("stage %q should not be terminal", stage)
		}
	}
	if !StatusDelivered.IsTerminal() || !StatusRejected.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Fatalf("expected Delivered, Rejected and Cancelled to be terminal")
	}
	if StatusApproved.IsStage() || StatusPending.IsStage() {
		t.Fatalf("Approved and Pending are not production stages")
	}
}

func TestStatusesCoverEveryPhase(t *testing.T) {
	t.Parallel()

	all := Statuses()
	if len(all) != len(statusPhases) {
		t.Fatalf("unexpected status count: got=%d want=%d", len(all), len(statusPhases))
	}
	for _, status := range all {
		if !status.Valid() {
			t.Fatalf("status %q should be valid", status)
		}
	}
	all[0] = "mutated"
	if Statuses()[0] != StatusPending {
		t.Fatalf("Statuses should return a fresh slice")
	}
}

func TestCoordinatesUnmarshalCoercesValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   string
		wantValid bool
		wantLat   float64
	}{
		{name: "numbers", payload: `{"lat": 23.81, "lng": 90.41}`, wantValid: true, wantLat: 23.81},
		{name: "numeric strings", payload: `{"lat": "23.81", "lng": " 90.41 "}`, wantValid: true, wantLat: 23.81},
		{name: "garbage string", payload: `{"lat": "north", "lng": 90.41}`, wantValid: false},
		{name: "missing lng", payload: `{"lat": 23.81}`, wantValid: false, wantLat: 23.81},
		{name: "out of range", payload: `{"lat": 123, "lng": 90}`, wantValid: false, wantLat: 123},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var coords Coordinates
			if err := json.Unmarshal([]byte(tc.payload), &coords); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if coords.Valid() != tc.wantValid {
				t.Fatalf("unexpected validity: got=%v want=%v (%+v)", coords.Valid(), tc.wantValid, coords)
			}
			if tc.wantLat != 0 && coords.Lat != tc.wantLat {
				t.Fatalf("unexpected lat: got=%v want=%v", coords.Lat, tc.wantLat)
			}
		})
	}
}

func TestCoordinatesMarshalNaNAsNull(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(Coordinates{Lat: math.NaN(), Lng: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != "null" {
		t.Fatalf("unexpected payload: got=%s want=null", payload)
	}
}
