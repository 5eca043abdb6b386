package service

import (
	"context"
	"time"

	"github.com/diagnosis/bistro-api/pkg/events"
	"github.com/diagnosis/bistro-api/pkg/logger"
	"github.com/diagnosis/bistro-api/pkg/metrics"
)

const (
	CartCleanupQueue = "cart-cleanup"

	cleanupBaseDelay   = 200 * time.Millisecond
	cleanupMaxAttempts = 5
)

// CartCleanupWorker finishes cart deletions that Reconcile could not
// complete inline. The bulk delete skips ids already gone, so redelivery
// and retries are safe.
type CartCleanupWorker struct {
	carts       CartDeleter
	metrics     metrics.Recorder
	baseDelay   time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewCartCleanupWorker(carts CartDeleter, rec metrics.Recorder) *CartCleanupWorker {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CartCleanupWorker{
		carts:       carts,
		metrics:     rec,
		baseDelay:   cleanupBaseDelay,
		maxAttempts: cleanupMaxAttempts,
		sleep:       sleepCtx,
	}
}

// Start binds the durable cleanup consumer. A request that Handle cannot
// finish stays in the stream and is redelivered, including after a restart.
func (w *CartCleanupWorker) Start(ctx context.Context, sub events.DurableSubscriber) error {
	return sub.DurableQueueSubscribe(events.CartCleanupRequested, CartCleanupQueue, func(msg *events.Message) error {
		var ev events.CartCleanupRequestedEvent
		if err := msg.Decode(&ev); err != nil {
			logger.ErrorContext(ctx, "dropping malformed cleanup request", "error", err)
			w.metrics.RecordCartCleanup("malformed")
			return nil
		}
		return w.Handle(ctx, ev)
	})
}

// Handle retries the delete with exponential backoff until it succeeds or
// the attempts run out. A non-nil result leaves the request queued.
func (w *CartCleanupWorker) Handle(ctx context.Context, ev events.CartCleanupRequestedEvent) error {
	var err error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			if serr := w.sleep(ctx, backoff(w.baseDelay, attempt)); serr != nil {
				err = serr
				break
			}
		}

		res, derr := w.carts.DeleteByIDs(ctx, ev.CartIDs)
		if derr == nil {
			w.metrics.RecordCartEntriesRemoved(res.DeletedCount)
			w.metrics.RecordCartCleanup("succeeded")
			logger.InfoContext(ctx, "deferred cart cleanup done",
				"payment_id", ev.PaymentID,
				"deleted", res.DeletedCount,
				"attempts", attempt+1,
			)
			return nil
		}
		err = derr
		logger.WarnContext(ctx, "cart cleanup attempt failed", "payment_id", ev.PaymentID, "attempt", attempt+1, "error", derr)
	}

	w.metrics.RecordCartCleanup("requeued")
	logger.ErrorContext(ctx, "cart cleanup requeued",
		"payment_id", ev.PaymentID,
		"email", ev.Email,
		"cart_ids", ev.CartIDs,
		"error", err,
	)
	return err
}

// backoff doubles base for every attempt after the first.
func backoff(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
