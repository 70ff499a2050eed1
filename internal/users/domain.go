package users

import "time"

// User represents a user account for management.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput carries the fields accepted when registering a staff account.
type CreateInput struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	Email       string   `json:"email" validate:"required,email,max=255"`
	DisplayName string   `json:"display_name" validate:"max=128"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	Roles       []string `json:"roles" validate:"dive,required"`
}

// NewUser is the persisted form of CreateInput.
type NewUser struct {
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
}
