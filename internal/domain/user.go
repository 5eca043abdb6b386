package domain

import (
	"time"

	"github.com/diagnosis/bistro-api/internal/utils"
)

type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photoURL,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type TokenRequest struct {
	Email string `json:"email"`
}

func (r *TokenRequest) Validate() error {
	r.Email = utils.NormalizeEmail(r.Email)
	if !utils.IsValidEmail(r.Email) {
		return invalid("email is required and must be a valid address")
	}
	return nil
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

func (r *CreateUserRequest) Validate() error {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Name = utils.NormalizeString(r.Name)
	if !utils.IsValidEmail(r.Email) {
		return invalid("email is required and must be a valid address")
	}
	return nil
}

// UserAlreadyExists is the signup reply when the email is taken. It is not an error status.
type UserAlreadyExists struct {
	Message    string  `json:"message"`
	InsertedID *string `json:"insertedID"`
}

const MsgUserAlreadyExists = "User already exist"

type AdminStatus struct {
	Admin bool `json:"admin"`
}
