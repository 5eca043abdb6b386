package handlers

import (
	"net/http"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/pkg/auth"
)

type TokenIssuer interface {
	Issue(sub auth.Subject) (string, error)
}

type JWTHandler struct {
	Tokens TokenIssuer
}

func NewJWTHandler(tokens TokenIssuer) *JWTHandler {
	return &JWTHandler{Tokens: tokens}
}

// issue signs a token for whatever email the client presents. Possession of
// the token is all later guards check; role comes from the user store.
func (h *JWTHandler) issue(w http.ResponseWriter, r *http.Request) {
	var in domain.TokenRequest
	if !decodeValid(w, r, &in) {
		return
	}

	token, err := h.Tokens.Issue(auth.Subject{Email: in.Email})
	if err != nil {
		writeError(w, r, "issue token", err)
		return
	}
	response.OK(w, map[string]string{"token": token})
}
