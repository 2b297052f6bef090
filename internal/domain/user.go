package domain

import "time"

type UserType string

const (
	UserStudent UserType = "student"
	UserOwner   UserType = "owner"
)

type User struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	UserType     UserType  `json:"userType"`
	Address      *Address  `json:"address,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
