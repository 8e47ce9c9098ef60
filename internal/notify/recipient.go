package notify

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
)

// RecipientLookup resolves the buyer's contact details.
type RecipientLookup interface {
	Recipient(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

// WithRecipient fills Summary.Recipient from lookup before passing the
// summary on. Wrapped in Async, the lookup runs off the request path.
type WithRecipient struct {
	lookup RecipientLookup
	next   Dispatcher
}

func NewWithRecipient(lookup RecipientLookup, next Dispatcher) *WithRecipient {
	return &WithRecipient{lookup: lookup, next: next}
}

func (w *WithRecipient) Dispatch(ctx context.Context, summary Summary) error {
	rcpt, err := w.lookup.Recipient(ctx, summary.UserID)
	if err != nil {
		return fmt.Errorf("notify: no recipient for order %s: %w", summary.OrderID, err)
	}
	summary.Recipient = rcpt
	return w.next.Dispatch(ctx, summary)
}
