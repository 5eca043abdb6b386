package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
	"github.com/diagnosis/bistro-api/internal/utils"
	"github.com/diagnosis/bistro-api/pkg/events"
	"github.com/diagnosis/bistro-api/pkg/logger"
	"github.com/diagnosis/bistro-api/pkg/metrics"
)

type PaymentStore interface {
	Insert(ctx context.Context, p *domain.Payment) (domain.InsertResult, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Payment, error)
}

type CartDeleter interface {
	DeleteByIDs(ctx context.Context, ids []string) (domain.DeleteResult, error)
}

type PaymentService struct {
	payments PaymentStore
	carts    CartDeleter
	gateway  payment.Gateway
	events   events.Publisher
	metrics  metrics.Recorder
	currency string
	now      func() time.Time
}

func NewPaymentService(
	payments PaymentStore,
	carts CartDeleter,
	gateway payment.Gateway,
	pub events.Publisher,
	rec metrics.Recorder,
	currency string,
) *PaymentService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &PaymentService{
		payments: payments,
		carts:    carts,
		gateway:  gateway,
		events:   pub,
		metrics:  rec,
		currency: strings.ToLower(currency),
		now:      time.Now,
	}
}

// Reconcile records a completed payment and then empties the paid-for cart
// entries. The payment insert is the commit point: if it fails nothing else
// runs. If the cart delete fails afterwards, the deletion is queued for the
// cleanup worker and the call still succeeds with CleanupPending set.
func (s *PaymentService) Reconcile(ctx context.Context, req domain.PaymentRequest) (*domain.ReconcileResult, error) {
	p := req.ToPayment(s.now())

	ins, err := s.payments.Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	s.metrics.RecordPaymentRecorded()
	logger.InfoContext(ctx, "payment recorded", "payment_id", p.ID, "email", p.Email, "cart_items", len(p.CartIDs))

	res := &domain.ReconcileResult{PaymentResult: ins}

	del, err := s.carts.DeleteByIDs(ctx, p.CartIDs)
	if err != nil {
		logger.ErrorContext(ctx, "cart delete failed after payment, queueing cleanup", "payment_id", p.ID, "error", err)

		ev := events.CartCleanupRequestedEvent{
			PaymentID: p.ID,
			Email:     p.Email,
			CartIDs:   p.CartIDs,
			Reason:    err.Error(),
			At:        s.now().UTC(),
		}
		if perr := s.events.Publish(ctx, events.CartCleanupRequested, ev); perr != nil {
			return nil, fmt.Errorf("clear cart for payment %s: %w", p.ID, errors.Join(err, perr))
		}
		s.metrics.RecordCartCleanup("queued")
		res.DeleteResult = domain.DeleteResult{Acknowledged: false, DeletedCount: 0}
		res.CleanupPending = true
	} else {
		s.metrics.RecordCartEntriesRemoved(del.DeletedCount)
		res.DeleteResult = del
	}

	s.publishCompleted(ctx, p)
	return res, nil
}

func (s *PaymentService) publishCompleted(ctx context.Context, p *domain.Payment) {
	ev := events.PaymentCompletedEvent{
		PaymentID:     p.ID,
		Email:         p.Email,
		Price:         p.Price,
		TransactionID: p.TransactionID,
		ItemCount:     len(p.CartIDs),
		PaidAt:        p.Date,
	}
	if err := s.events.Publish(ctx, events.PaymentCompleted, ev); err != nil {
		logger.WarnContext(ctx, "payment.completed not published", "payment_id", p.ID, "error", err)
	}
}

func (s *PaymentService) ListByEmail(ctx context.Context, email string) ([]domain.Payment, error) {
	out, err := s.payments.ListByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// CreateIntent converts the price to minor units and asks the gateway for a
// client secret. Nothing is stored.
func (s *PaymentService) CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntentResponse, error) {
	amount, err := payment.ToMinorUnits(req.Price)
	if err != nil {
		return nil, err
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, currency)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	s.metrics.RecordIntentAmount(amount)

	ev := events.PaymentIntentCreatedEvent{IntentID: intent.ID, Amount: amount, Currency: currency, At: s.now().UTC()}
	if err := s.events.Publish(ctx, events.PaymentIntentCreated, ev); err != nil {
		logger.WarnContext(ctx, "payment.intent.created not published", "intent_id", intent.ID, "error", err)
	}

	return &domain.PaymentIntentResponse{ClientSecret: intent.ClientSecret}, nil
}
