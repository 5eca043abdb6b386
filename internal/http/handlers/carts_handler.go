package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/middleware"
	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/internal/repo/postgres"
	"github.com/diagnosis/bistro-api/internal/utils"
)

type CartsHandler struct {
	Carts postgres.CartsRepo
}

func NewCartsHandler(carts postgres.CartsRepo) *CartsHandler {
	return &CartsHandler{Carts: carts}
}

func (h *CartsHandler) Routes(g *middleware.Guards) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.add)
	r.Get("/", h.list)
	r.With(g.AdminOnly).Delete("/{id}", h.delete)
	return r
}

func (h *CartsHandler) add(w http.ResponseWriter, r *http.Request) {
	var in domain.CartEntryInput
	if !decodeValid(w, r, &in) {
		return
	}

	e := &domain.CartEntry{
		ID:     utils.NewID(),
		Email:  in.Email,
		MenuID: in.MenuID,
		Name:   in.Name,
		Image:  in.Image,
		Price:  in.Price,
	}
	res, err := h.Carts.Insert(r.Context(), e)
	if err != nil {
		writeError(w, r, "add cart entry", err)
		return
	}
	response.OK(w, res)
}

func (h *CartsHandler) list(w http.ResponseWriter, r *http.Request) {
	email := utils.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		response.BadRequest(w, "email query parameter is required")
		return
	}

	entries, err := h.Carts.ListByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, "list cart", err)
		return
	}
	response.OK(w, entries)
}

func (h *CartsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	res, err := h.Carts.DeleteByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "delete cart entry", err)
		return
	}
	response.OK(w, res)
}
