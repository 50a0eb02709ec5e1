package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/services"
)

type productRequest struct {
	Name           string   `json:"name" validate:"required"`
	Category       string   `json:"category" validate:"required"`
	Description    string   `json:"description"`
	Image          string   `json:"image" validate:"omitempty,url"`
	DemoVideo      string   `json:"demoVideo" validate:"omitempty,url"`
	PriceCents     int64    `json:"priceCents" validate:"gte=0"`
	Quantity       int      `json:"quantity" validate:"gte=0"`
	MinimumOrder   int      `json:"minimumOrder" validate:"gte=0"`
	Features       []string `json:"features"`
	PaymentOptions []string `json:"paymentOptions"`
	ShowOnHome     bool     `json:"showOnHome"`
}

func (p productRequest) product() *models.Product {
	return &models.Product{
		Name:           p.Name,
		Category:       p.Category,
		Description:    p.Description,
		Image:          p.Image,
		DemoVideo:      p.DemoVideo,
		PriceCents:     p.PriceCents,
		Quantity:       p.Quantity,
		MinimumOrder:   p.MinimumOrder,
		Features:       p.Features,
		PaymentOptions: p.PaymentOptions,
		ShowOnHome:     p.ShowOnHome,
	}
}

// ListProducts is public. home=true returns the featured selection.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		products []models.Product
		err      error
	)
	if featured, _ := strconv.ParseBool(query.Get("home")); featured {
		products, err = h.productService.Featured(r.Context())
	} else {
		productQuery := services.ProductQuery{
			Category:  strings.TrimSpace(query.Get("category")),
			CreatedBy: strings.TrimSpace(query.Get("createdBy")),
		}
		if raw := query.Get("limit"); raw != "" {
			limit, convErr := strconv.Atoi(raw)
			if convErr != nil || limit < 0 {
				writeError(w, r, &lifecycle.ValidationError{Field: "limit", Message: "limit must be a non-negative number"})
				return
			}
			productQuery.Limit = limit
		}
		products, err = h.productService.List(r.Context(), productQuery)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, r, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, product)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	email, err := h.actorEmail(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := h.productService.Create(r.Context(), email, req.product())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/product/"+product.ID.String())
	writeJSON(w, r, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
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

	var patch services.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := h.productService.Update(r.Context(), email, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
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

	if err := h.productService.Delete(r.Context(), email, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
