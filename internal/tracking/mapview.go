package tracking

import (
	"github.com/garmentrack/garmentrack/internal/models"
)

const MapPlaceholder = "Location map unavailable"

// MapView describes how a client should render the last known position.
type MapView struct {
	Available   bool    `json:"available"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	Location    string  `json:"location,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
}

// NewMapView never fails: absent or unusable coordinates produce a placeholder.
func NewMapView(coords *models.Coordinates, location string) MapView {
	if coords == nil || !coords.Valid() {
		return MapView{Location: location, Placeholder: MapPlaceholder}
	}
	return MapView{
		Available: true,
		Lat:       coords.Lat,
		Lng:       coords.Lng,
		Location:  location,
	}
}

// View is the newest-first tracking projection of an order.
type View struct {
	OrderID  string             `json:"orderId"`
	Status   models.OrderStatus `json:"status"`
	Phase    models.Phase       `json:"phase"`
	Timeline []TimelineEntry    `json:"timeline"`
	Map      MapView            `json:"map"`
}

func ViewOf(order *models.Order) View {
	log := NewLog(order.TrackingHistory)
	return View{
		OrderID:  order.ID.String(),
		Status:   order.Status,
		Phase:    models.ClassifyStatus(order.Status),
		Timeline: log.Timeline(),
		Map:      NewMapView(order.Coordinates, order.Location),
	}
}
