package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role is the closed set of account kinds the backend issues.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
)

// Known reports whether r is one of the roles the client can route.
func (r Role) Known() bool {
	switch r {
	case RoleStudent, RoleOwner, RoleAdmin:
		return true
	default:
		return false
	}
}

// ID is an identifier the backend may send either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type User struct {
	ID       ID     `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName,omitempty"`
}

// Session is the authenticated identity held by the client. It is replaced
// wholesale on login and cleared wholesale on logout.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// AuthResponse is returned by /auth/login and /auth/register/verify.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// RegisterProfile is the full registration form posted to /auth/register/request.
type RegisterProfile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Role     Role   `json:"role"`

	// owner only
	NICNumber string `json:"nicNumber,omitempty"`
	AccNo     string `json:"accNo,omitempty"`

	// student only
	StudentUniversity string `json:"studentUniversity,omitempty"`
}
