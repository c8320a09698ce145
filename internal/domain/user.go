package domain

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	PetName      string    `json:"pet_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
