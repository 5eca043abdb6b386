package domain

import "github.com/diagnosis/bistro-api/internal/utils"

type MenuItem struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Recipe   string  `json:"recipe"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type MenuItemInput struct {
	Name     string  `json:"name"`
	Recipe   string  `json:"recipe"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func (in *MenuItemInput) Validate() error {
	in.Name = utils.NormalizeString(in.Name)
	in.Category = utils.NormalizeString(in.Category)
	if in.Name == "" {
		return invalid("name is required")
	}
	if in.Category == "" {
		return invalid("category is required")
	}
	if in.Price < 0 {
		return invalid("price must not be negative")
	}
	return nil
}

type Review struct {
	ID      string  `json:"_id"`
	Name    string  `json:"name"`
	Details string  `json:"details"`
	Rating  float64 `json:"rating"`
}
