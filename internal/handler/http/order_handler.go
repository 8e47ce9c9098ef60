package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/money"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

// CartItemRequest accepts the quantity as a JSON string ("1.5") or number
// (1.5). It is handed to the service unparsed.
type CartItemRequest struct {
	ID       int64           `json:"id" validate:"required,gt=0"`
	Quantity json.RawMessage `json:"quantity" validate:"required"`
}

type CheckoutRequest struct {
	Cart          []CartItemRequest `json:"cart" validate:"required,min=1,dive"`
	AddressID     *int64            `json:"address_id" validate:"omitempty,gt=0"`
	DeliveryFee   json.RawMessage   `json:"delivery_fee"`
	TransactionID *int64            `json:"transaction_id" validate:"omitempty,gt=0"`
}

type CheckoutResponse struct {
	Message string    `json:"message"`
	OrderID uuid.UUID `json:"order_id"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCheckout)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrderByID)
}

// rawDecimal returns the literal behind a JSON string or number.
func rawDecimal(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// deliveryFee is zero when the field is absent or null.
func deliveryFee(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, nil
	}
	return money.ParseAmount(rawDecimal(raw))
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var requestPayload CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode checkout request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	fee, err := deliveryFee(requestPayload.DeliveryFee)
	if err != nil {
		log.Warn().Err(err).Stringer("user_id", principal.UserID).Msg("Rejected checkout delivery fee")
		respondWithDomainError(w, err, "Invalid delivery fee")
		return
	}

	req := order.CheckoutRequest{
		UserID:        principal.UserID,
		Cart:          make([]order.CartLine, 0, len(requestPayload.Cart)),
		AddressID:     requestPayload.AddressID,
		DeliveryFee:   fee,
		TransactionID: requestPayload.TransactionID,
	}
	for _, item := range requestPayload.Cart {
		req.Cart = append(req.Cart, order.CartLine{ProductID: item.ID, Quantity: rawDecimal(item.Quantity)})
	}

	placed, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", principal.UserID).Msg("Failed to create order via service")
		respondWithDomainError(w, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, CheckoutResponse{
		Message: "Order created successfully",
		OrderID: placed.ID,
	})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

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

	page, err := h.service.ListOrders(r.Context(), principal.UserID, order.ListFilter{Status: status, Skip: skip, Limit: limit})
	if err != nil {
		log.Error().Err(err).Stringer("user_id", principal.UserID).Msg("Failed to list orders via service")
		respondWithDomainError(w, err, "Error fetching orders")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	found, err := h.service.GetOrderByID(r.Context(), orderID, principal.Requester())
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order by id via service")
		respondWithDomainError(w, err, "Error fetching order")
		return
	}

	respondWithJSON(w, http.StatusOK, found)
}
