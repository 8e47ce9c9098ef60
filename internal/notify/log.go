package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogDispatcher writes summaries to the service log. Used when Kafka is disabled.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, summary Summary) error {
	log.Info().
		Stringer("order_id", summary.OrderID).
		Str("total", summary.Total.StringFixed(2)).
		Str("subtotal", summary.Subtotal.StringFixed(2)).
		Str("delivery_fee", summary.DeliveryFee.StringFixed(2)).
		Int("lines", len(summary.Lines)).
		Str("recipient", summary.Recipient.Email).
		Msg("notify: order placed")
	return nil
}
