package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type ErrorResponse struct {
	Error string     `json:"error"`
	Kind  order.Kind `json:"kind,omitempty"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithDomainError reports a service error with its kind. Infrastructure
// failures get fallback as the message so internals never reach the client.
func respondWithDomainError(w http.ResponseWriter, err error, fallback string) {
	kind := order.KindOf(err)
	message, ok := kindMessages[kind]
	if !ok {
		message = fallback
	}
	respondWithJSON(w, mapErrorToStatusCode(err), ErrorResponse{Error: message, Kind: kind})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

var kindMessages = map[order.Kind]string{
	order.KindInvalidAddress:                "Invalid address ID",
	order.KindProductNotFound:               "Product not found",
	order.KindInsufficientStock:             "Insufficient stock",
	order.KindInvalidQuantity:               "Invalid quantity value",
	order.KindInvalidAmount:                 "Invalid delivery fee",
	order.KindEmptyCart:                     "Cart must contain at least one item",
	order.KindInvalidOrUsedTransaction:      "Invalid or already used transaction",
	order.KindInsufficientTransactionAmount: "Insufficient transaction amount",
	order.KindOrderNotFound:                 "Order not found",
	order.KindInvalidStatus:                 "Invalid order status",
	order.KindForbidden:                     "Forbidden",
}

func mapErrorToStatusCode(err error) int {
	switch order.KindOf(err) {
	case order.KindInvalidAddress,
		order.KindInvalidQuantity,
		order.KindInvalidAmount,
		order.KindEmptyCart,
		order.KindInvalidOrUsedTransaction,
		order.KindInsufficientTransactionAmount,
		order.KindInvalidStatus:
		return http.StatusBadRequest
	case order.KindInsufficientStock:
		return http.StatusConflict
	case order.KindProductNotFound, order.KindOrderNotFound:
		return http.StatusNotFound
	case order.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondWithValidationError writes the 400 for a failed validate.Struct call.
func respondWithValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return
	}
	log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			details[field] = "is required"
		case "min":
			details[field] = fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// parsePaging reads skip and limit with the listing defaults.
func parsePaging(r *http.Request) (skip, limit int, err error) {
	limit = defaultLimit
	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
	}
	return skip, limit, nil
}

func parseStatusFilter(r *http.Request) (order.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}
	return order.ParseStatus(raw)
}
