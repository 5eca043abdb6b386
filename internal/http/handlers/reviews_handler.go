package handlers

import (
	"net/http"

	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/internal/repo/postgres"
)

type ReviewsHandler struct {
	Reviews postgres.ReviewsRepo
}

func NewReviewsHandler(reviews postgres.ReviewsRepo) *ReviewsHandler {
	return &ReviewsHandler{Reviews: reviews}
}

func (h *ReviewsHandler) list(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Reviews.List(r.Context())
	if err != nil {
		writeError(w, r, "list reviews", err)
		return
	}
	response.OK(w, reviews)
}
