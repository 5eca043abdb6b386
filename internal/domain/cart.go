package domain

import (
	"time"

	"github.com/diagnosis/bistro-api/internal/utils"
)

type CartEntry struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	MenuID    string    `json:"menuId"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartEntryInput struct {
	Email  string  `json:"email"`
	MenuID string  `json:"menuId"`
	Name   string  `json:"name"`
	Image  string  `json:"image"`
	Price  float64 `json:"price"`
}

func (in *CartEntryInput) Validate() error {
	in.Email = utils.NormalizeEmail(in.Email)
	if !utils.IsValidEmail(in.Email) {
		return invalid("email is required and must be a valid address")
	}
	if in.MenuID == "" {
		return invalid("menuId is required")
	}
	if in.Price < 0 {
		return invalid("price must not be negative")
	}
	return nil
}
