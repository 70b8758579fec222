package user

// RegisterDTO carries the identity fields delivered by the chat platform on
// first contact.
type RegisterDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d RegisterDTO) Validate() error {
	if d.ID == 0 {
		return ValidationError{Msg: "id is required"}
	}
	if d.FirstName == "" && d.Username == "" {
		return ValidationError{Msg: "first_name or username is required"}
	}
	return nil
}

// SetCredentialsDTO grants a user web panel access.
type SetCredentialsDTO struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d SetCredentialsDTO) Validate() error {
	if d.UserID == 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if len(d.Password) < 8 {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}
