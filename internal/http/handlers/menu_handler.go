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

type MenuHandler struct {
	Menu postgres.MenuRepo
}

func NewMenuHandler(menu postgres.MenuRepo) *MenuHandler {
	return &MenuHandler{Menu: menu}
}

func (h *MenuHandler) Routes(g *middleware.Guards) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.With(g.AdminOnly).Post("/", h.create)
	r.Patch("/{id}", h.update)
	r.With(g.AdminOnly).Delete("/{id}", h.delete)
	return r
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Menu.List(r.Context())
	if err != nil {
		writeError(w, r, "list menu", err)
		return
	}
	response.OK(w, items)
}

func (h *MenuHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	item, err := h.Menu.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "get menu item", err)
		return
	}
	if item == nil {
		response.NotFound(w, "Menu item not found")
		return
	}
	response.OK(w, item)
}

func (h *MenuHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.MenuItemInput
	if !decodeValid(w, r, &in) {
		return
	}

	item := &domain.MenuItem{
		ID:       utils.NewID(),
		Name:     in.Name,
		Recipe:   in.Recipe,
		Image:    in.Image,
		Category: in.Category,
		Price:    in.Price,
	}
	res, err := h.Menu.Insert(r.Context(), item)
	if err != nil {
		writeError(w, r, "create menu item", err)
		return
	}
	response.OK(w, res)
}

func (h *MenuHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in domain.MenuItemInput
	if !decodeValid(w, r, &in) {
		return
	}

	res, err := h.Menu.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, "update menu item", err)
		return
	}
	response.OK(w, res)
}

func (h *MenuHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	res, err := h.Menu.DeleteByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "delete menu item", err)
		return
	}
	response.OK(w, res)
}
