package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/services"
)

type placeOrderRequest struct {
	ProductID       string `json:"productId" validate:"required,uuid"`
	Quantity        int    `json:"quantity"`
	PaymentOption   string `json:"paymentOption"`
	BuyerName       string `json:"buyerName"`
	ContactNumber   string `json:"contactNumber" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	Notes           string `json:"notes"`
}

// trackingRequest mirrors the tracking payload of the dashboard. time and
// isLatest are accepted for compatibility; the server stamps the time itself.
type trackingRequest struct {
	Status   string `json:"status" validate:"required"`
	Location string `json:"location" validate:"required"`
	Note     string `json:"note"`
	Image    string `json:"image" validate:"omitempty,url"`
	Time     string `json:"time"`
	IsLatest bool   `json:"isLatest"`
}

type orderPatchRequest struct {
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Tracking      *trackingRequest    `json:"tracking"`
	Coordinates   *models.Coordinates `json:"coordinates"`
}

// updates counts the independent changes a patch asks for.
func (p orderPatchRequest) updates() int {
	n := 0
	if p.Tracking != nil {
		n++
	}
	if strings.TrimSpace(p.Status) != "" {
		n++
	}
	if strings.TrimSpace(p.PaymentStatus) != "" {
		n++
	}
	return n
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: no record with id %q", lifecycle.ErrNotFound, raw)
	}
	return id, nil
}

// ListOrders accepts email, status (comma separated) and limit filters.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	orderQuery := services.OrderQuery{BuyerEmail: query.Get("email")}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseOrderStatus(part)
			if err != nil {
				writeError(w, r, &lifecycle.ValidationError{Field: "status", Message: fmt.Sprintf("Unknown status: %s", strings.TrimSpace(part))})
				return
			}
			orderQuery.Statuses = append(orderQuery.Statuses, status)
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, &lifecycle.ValidationError{Field: "limit", Message: "limit must be a non-negative number"})
			return
		}
		orderQuery.Limit = limit
	}

	orders, err := h.orderService.List(r.Context(), email, orderQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, r, http.StatusOK, orders)
}

// PlaceOrder answers 201 for a new order and 200 when an Idempotency-Key
// replays an earlier one.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	order, created, err := h.orderService.Place(r.Context(), email, services.PlaceOrderInput{
		ProductID:       uuid.MustParse(req.ProductID),
		Quantity:        req.Quantity,
		PaymentOption:   req.PaymentOption,
		BuyerName:       req.BuyerName,
		ContactNumber:   req.ContactNumber,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/order/"+order.ID.String())
	writeJSON(w, r, status, order)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orderService.Get(r.Context(), email, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, order)
}

// CancelOrder is the buyer's withdrawal of a Pending order.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orderService.Cancel(r.Context(), email, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, order)
}

// UpdateOrder dispatches a PATCH to approve, reject, cancel, record payment
// or append tracking. Exactly one kind of change is applied per request.
func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req orderPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.updates() > 1 {
		writeError(w, r, requestError{message: "Send only one of tracking, status or paymentStatus"})
		return
	}

	ctx := r.Context()
	var order *models.Order
	switch {
	case req.Tracking != nil:
		if err := validatePayload(req.Tracking); err != nil {
			writeError(w, r, err)
			return
		}
		order, err = h.orderService.AppendTracking(ctx, email, id, lifecycle.TrackingInput{
			Status:      req.Tracking.Status,
			Location:    req.Tracking.Location,
			Note:        req.Tracking.Note,
			Image:       req.Tracking.Image,
			Coordinates: req.Coordinates,
		})
	case strings.TrimSpace(req.Status) != "":
		order, err = h.applyStatus(r, email, id, req.Status)
	case strings.TrimSpace(req.PaymentStatus) != "":
		if models.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus))) != models.PaymentPaid {
			err = &lifecycle.ValidationError{Field: "paymentStatus", Message: "Payments can only be marked as paid"}
			break
		}
		order, err = h.orderService.MarkPaid(ctx, email, id)
	default:
		err = &lifecycle.ValidationError{Field: "status", Message: "Nothing to update"}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, order)
}

func (h *Handlers) applyStatus(r *http.Request, email string, id uuid.UUID, raw string) (*models.Order, error) {
	status, err := models.ParseOrderStatus(raw)
	if err != nil {
		return nil, &lifecycle.ValidationError{Field: "status", Message: fmt.Sprintf("Unknown status: %s", strings.TrimSpace(raw))}
	}

	ctx := r.Context()
	switch status {
	case models.StatusApproved:
		return h.orderService.Approve(ctx, email, id)
	case models.StatusRejected:
		return h.orderService.Reject(ctx, email, id)
	case models.StatusCancelled:
		return h.orderService.Cancel(ctx, email, id)
	default:
		return nil, &lifecycle.ValidationError{Field: "status", Message: "Production stages are recorded with a tracking update"}
	}
}

func (h *Handlers) OrderTracking(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.orderService.Timeline(r.Context(), email, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}
