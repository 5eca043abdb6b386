package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/bistro-api/internal/utils"
)

// Payment is written once per completed checkout and never updated.
type Payment struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	Price         float64   `json:"price"`
	TransactionID string    `json:"transactionId"`
	CartIDs       []string  `json:"cartIds"`
	MenuItemIDs   []string  `json:"menuItemIds"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
}

type PaymentRequest struct {
	Email         string    `json:"email"`
	Price         float64   `json:"price"`
	TransactionID string    `json:"transactionId"`
	CartIDs       []string  `json:"cartIds"`
	MenuItemIDs   []string  `json:"menuItemIds"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
}

func (r *PaymentRequest) Validate() error {
	r.Email = utils.NormalizeEmail(r.Email)
	if !utils.IsValidEmail(r.Email) {
		return invalid("email is required and must be a valid address")
	}
	if r.Price <= 0 {
		return invalid("price must be positive")
	}
	if r.CartIDs == nil {
		return invalid("cartIds is required")
	}
	for _, id := range r.CartIDs {
		if !utils.IsValidID(id) {
			return invalid("cartIds contains malformed id %q", id)
		}
	}
	if r.Status == "" {
		r.Status = "pending"
	}
	return nil
}

// ToPayment builds the record to persist; the id and date are assigned here when absent.
func (r *PaymentRequest) ToPayment(now time.Time) *Payment {
	date := r.Date
	if date.IsZero() {
		date = now
	}
	menuItemIDs := r.MenuItemIDs
	if menuItemIDs == nil {
		menuItemIDs = []string{}
	}
	return &Payment{
		ID:            utils.NewID(),
		Email:         r.Email,
		Price:         r.Price,
		TransactionID: r.TransactionID,
		CartIDs:       append([]string(nil), r.CartIDs...),
		MenuItemIDs:   append([]string(nil), menuItemIDs...),
		Status:        r.Status,
		Date:          date.UTC(),
	}
}

// ReconcileResult reports both halves of the checkout so the client can see
// how many cart rows were actually removed.
type ReconcileResult struct {
	PaymentResult  InsertResult `json:"paymentResult"`
	DeleteResult   DeleteResult `json:"deleteResult"`
	CleanupPending bool         `json:"cleanupPending,omitempty"`
}

type PaymentIntentRequest struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

func (r *PaymentIntentRequest) Validate() error {
	if !r.Price.IsPositive() {
		return invalid("price must be positive")
	}
	return nil
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}
