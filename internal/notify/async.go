package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Async hands summaries to the wrapped dispatcher on a background goroutine.
// Dispatch returns immediately and always succeeds; delivery errors are
// logged.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Dispatcher, timeout time.Duration) *Async {
	return &Async{next: next, timeout: timeout}
}

func (a *Async) Dispatch(ctx context.Context, summary Summary) error {
	// Detach from the request so the send outlives the response.
	bg := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic_value", p).Stringer("order_id", summary.OrderID).Msg("notify: dispatcher panicked")
			}
		}()

		sendCtx, cancel := context.WithTimeout(bg, a.timeout)
		defer cancel()

		if err := a.next.Dispatch(sendCtx, summary); err != nil {
			log.Error().Err(err).Stringer("order_id", summary.OrderID).Msg("notify: failed to send order notification")
			return
		}
		log.Info().Stringer("order_id", summary.OrderID).Msg("notify: order notification sent")
	}()

	return nil
}

// Wait blocks until in-flight sends finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
