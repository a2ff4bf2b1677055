package models

import "github.com/golang-jwt/jwt/v5"

type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the identity view the workflows consume: who is signed in and how to address them.
type Session struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// DisplayName joins first and last name, falling back to the email.
func (s *Session) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		if name != "" {
			name += " "
		}
		name += s.LastName
	}
	if name == "" {
		return s.Email
	}
	return name
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
