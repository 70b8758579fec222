package auth

import "strings"

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	if d.Email == "" {
		return ValidationError{Message: "email is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return ValidationError{Message: "email is invalid"}
	}
	if d.Password == "" {
		return ValidationError{Message: "password is required"}
	}
	return nil
}
