package models

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusApproved  OrderStatus = "Approved"
	StatusRejected  OrderStatus = "Rejected"
	StatusCancelled OrderStatus = "Cancelled"

	StageCuttingStarted   OrderStatus = "Cutting Started"
	StageCuttingCompleted OrderStatus = "Cutting Completed"
	StageSewingInProgress OrderStatus = "Sewing in Progress"
	StageQualityCheck     OrderStatus = "QC (Quality Check)"
	StageFinishingIroning OrderStatus = "Finishing & Ironing"
	StagePackingCompleted OrderStatus = "Packing Completed"
	StageReadyForShipment OrderStatus = "Ready for Shipment"
	StatusShipped         OrderStatus = "Shipped"
	StatusDelivered       OrderStatus = "Delivered"
)

// ProductionStages lists the tracking stages in their conventional order.
var ProductionStages = []OrderStatus{
	StageCuttingStarted,
	StageCuttingCompleted,
	StageSewingInProgress,
	StageQualityCheck,
	StageFinishingIroning,
	StagePackingCompleted,
	StageReadyForShipment,
	StatusShipped,
	StatusDelivered,
}

// Phase groups order statuses for display and analytics.
type Phase string

const (
	PhaseUnknown    Phase = ""
	PhasePending    Phase = "pending"
	PhaseApproved   Phase = "approved"
	PhaseProduction Phase = "production"
	PhaseShipping   Phase = "shipping"
	PhaseDelivered  Phase = "delivered"
	PhaseClosed     Phase = "closed"
)

var statusPhases = map[OrderStatus]Phase{
	StatusPending:         PhasePending,
	StatusApproved:        PhaseApproved,
	StatusRejected:        PhaseClosed,
	StatusCancelled:       PhaseClosed,
	StageCuttingStarted:   PhaseProduction,
	StageCuttingCompleted: PhaseProduction,
	StageSewingInProgress: PhaseProduction,
	StageQualityCheck:     PhaseProduction,
	StageFinishingIroning: PhaseProduction,
	StagePackingCompleted: PhaseProduction,
	StageReadyForShipment: PhaseShipping,
	StatusShipped:         PhaseShipping,
	StatusDelivered:       PhaseDelivered,
}

var statusesByFold = func() map[string]OrderStatus {
	lookup := make(map[string]OrderStatus, len(statusPhases))
	for status := range statusPhases {
		lookup[strings.ToLower(string(status))] = status
	}
	return lookup
}()

// ParseOrderStatus resolves a label to one of the known statuses.
// Matching ignores surrounding whitespace and case but never partial labels.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status, ok := statusesByFold[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown order status: %q", raw)
	}
	return status, nil
}

// ClassifyStatus returns the phase for a status label, or PhaseUnknown.
func ClassifyStatus(status OrderStatus) Phase {
	return statusPhases[status]
}

func (s OrderStatus) Valid() bool {
	_, ok := statusPhases[s]
	return ok
}

func (s OrderStatus) IsStage() bool {
	return StageIndex(s) >= 0
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// StageIndex returns the position of status in ProductionStages, or -1.
func StageIndex(status OrderStatus) int {
	for i, stage := range ProductionStages {
		if stage == status {
			return i
		}
	}
	return -1
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPaid || p == PaymentUnpaid
}

// Statuses lists every known status: the review statuses, then the production stages.
func Statuses() []OrderStatus {
	return append([]OrderStatus{StatusPending, StatusApproved, StatusRejected, StatusCancelled}, ProductionStages...)
}
