package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

type PaymentHandler struct {
	service payment.Service
}

func NewPaymentHandler(service payment.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Get("/transactions/available", h.handleListAvailable)
}

func (h *PaymentHandler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	transactions, err := h.service.ListAvailable(r.Context(), principal.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", principal.UserID).Msg("Failed to list available transactions via service")
		respondWithError(w, http.StatusInternalServerError, "Error fetching available transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}
