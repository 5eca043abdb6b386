package notify

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/diagnosis/bistro-api/internal/platform/mailer"
	"github.com/diagnosis/bistro-api/pkg/events"
	"github.com/diagnosis/bistro-api/pkg/logger"
)

const receiptQueue = "receipts"

// ReceiptNotifier mails a receipt for every completed payment.
// Client-supplied fields pass through a strict policy before they reach
// the HTML body: tags are dropped and the remaining text is escaped.
type ReceiptNotifier struct {
	mail   mailer.Service
	policy *bluemonday.Policy
}

func NewReceiptNotifier(mail mailer.Service) *ReceiptNotifier {
	return &ReceiptNotifier{mail: mail, policy: bluemonday.StrictPolicy()}
}

func (n *ReceiptNotifier) Start(ctx context.Context, sub events.Subscriber) error {
	return sub.QueueSubscribe(events.PaymentCompleted, receiptQueue, func(msg *events.Message) {
		var ev events.PaymentCompletedEvent
		if err := msg.Decode(&ev); err != nil {
			logger.ErrorContext(ctx, "dropping malformed payment event", "error", err)
			return
		}
		if err := n.Send(ctx, ev); err != nil {
			logger.ErrorContext(ctx, "receipt not sent", "payment_id", ev.PaymentID, "error", err)
		}
	})
}

func (n *ReceiptNotifier) Send(ctx context.Context, ev events.PaymentCompletedEvent) error {
	subject := "Your Bistro Boss receipt"
	text := fmt.Sprintf("Thanks for your order of %d item(s).\nTotal: $%.2f\nTransaction: %s\nDate: %s",
		ev.ItemCount, ev.Price, ev.TransactionID, ev.PaidAt.Format("Jan 2, 2006 15:04 MST"))
	html := fmt.Sprintf(`<p>Thanks for your order of <b>%d</b> item(s).</p><p>Total: <b>$%.2f</b><br>Transaction: %s</p>`,
		ev.ItemCount, ev.Price, n.policy.Sanitize(ev.TransactionID))

	id, err := n.mail.Send(ctx, ev.Email, "", subject, text, html)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "receipt sent", "payment_id", ev.PaymentID, "message_id", id)
	return nil
}
