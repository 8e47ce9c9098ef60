package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/reporting"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminHandler serves routes that must sit behind RequireRole.
type AdminHandler struct {
	orders   order.Service
	reports  reporting.Service
	validate *validator.Validate
}

func NewAdminHandler(orders order.Service, reports reporting.Service) *AdminHandler {
	return &AdminHandler{
		orders:   orders,
		reports:  reports,
		validate: validator.New(),
	}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Put("/orders/{id}/status", h.handleUpdateOrderStatus)
	router.Get("/admin/orders", h.handleListAllOrders)
}

func (h *AdminHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode status update request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	status, err := order.ParseStatus(requestPayload.Status)
	if err != nil {
		respondWithDomainError(w, err, "Invalid order status")
		return
	}

	if err := h.orders.UpdateOrderStatus(r.Context(), orderID, status); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("status", status).Msg("Failed to update order status via service")
		respondWithDomainError(w, err, "Error updating order status")
		return
	}

	log.Info().Stringer("order_id", orderID).Stringer("status", status).Stringer("admin_id", principal.UserID).Msg("Order status updated")
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Order status updated to %s", status)})
}

func (h *AdminHandler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePaging(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parseStatusFilter(r)
	if err != nil {
		respondWithDomainError(w, err, "Invalid order status")
		return
	}

	page, err := h.reports.ListOrders(r.Context(), reporting.Filter{
		Status: status,
		Search: r.URL.Query().Get("search"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list all orders via service")
		respondWithDomainError(w, err, "Error fetching orders")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}
