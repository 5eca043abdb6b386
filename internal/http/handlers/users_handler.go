package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/middleware"
	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/internal/repo/postgres"
	"github.com/diagnosis/bistro-api/internal/utils"
	"github.com/diagnosis/bistro-api/pkg/logger"
)

type UsersHandler struct {
	Users postgres.UsersRepo
}

func NewUsersHandler(users postgres.UsersRepo) *UsersHandler {
	return &UsersHandler{Users: users}
}

func (h *UsersHandler) Routes(g *middleware.Guards) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.With(g.AdminOnly).Get("/", h.list)
	r.With(g.SelfOnly("email")).Get("/admin/{email}", h.adminStatus)
	r.With(g.AdminOnly).Patch("/admin/{id}", h.promote)
	// no guard on delete
	r.Delete("/{id}", h.delete)
	return r
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateUserRequest
	if !decodeValid(w, r, &in) {
		return
	}

	u := &domain.User{
		ID:       utils.NewID(),
		Name:     in.Name,
		Email:    in.Email,
		PhotoURL: in.PhotoURL,
	}
	inserted, err := h.Users.InsertIfAbsent(r.Context(), u)
	if err != nil {
		writeError(w, r, "create user", err)
		return
	}
	if !inserted {
		response.OK(w, domain.UserAlreadyExists{Message: domain.MsgUserAlreadyExists})
		return
	}

	logger.InfoContext(r.Context(), "user created", "user_id", u.ID)
	response.OK(w, domain.Inserted(u.ID))
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, "list users", err)
		return
	}
	response.OK(w, users)
}

func (h *UsersHandler) adminStatus(w http.ResponseWriter, r *http.Request) {
	email := utils.NormalizeEmail(chi.URLParam(r, "email"))

	u, err := h.Users.FindByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, "admin status", err)
		return
	}
	response.OK(w, domain.AdminStatus{Admin: u.IsAdmin()})
}

func (h *UsersHandler) promote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	res, err := h.Users.PromoteToAdmin(r.Context(), id)
	if err != nil {
		writeError(w, r, "promote user", err)
		return
	}
	if res.ModifiedCount > 0 {
		logger.InfoContext(r.Context(), "user promoted to admin", "target_id", id)
	}
	response.OK(w, res)
}

func (h *UsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	res, err := h.Users.DeleteByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "delete user", err)
		return
	}
	response.OK(w, res)
}
