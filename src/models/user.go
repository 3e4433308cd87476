package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User ผู้ใช้ที่สร้าง poll/survey และโหวตได้
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"` // bcrypt hash, never sent back
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the populated form of a user reference (name + email only).
type UserSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the authenticated caller taken from the JWT claims.
type Identity struct {
	UserID primitive.ObjectID
	Email  string
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

type AuthResponse struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Token string             `json:"token"`
}
