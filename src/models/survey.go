package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	QuestionText           = "text"
	QuestionSingleChoice   = "singleChoice"
	QuestionMultipleChoice = "multipleChoice"
	QuestionDropdown       = "dropdown"
	QuestionDate           = "date"

	DefaultBgColor = "#ffffff"
)

// Question คำถามในแบบสอบถาม; id มาจากฝั่ง client
type Question struct {
	ID       string   `bson:"id" json:"id"`
	Type     string   `bson:"type" json:"type" validate:"required,oneof=text singleChoice multipleChoice dropdown date"`
	Title    string   `bson:"title" json:"title" validate:"required"`
	Required bool     `bson:"required" json:"required"`
	Options  []string `bson:"options,omitempty" json:"options,omitempty"`
}

// IsChoice reports whether answers must come from Options.
func (q Question) IsChoice() bool {
	switch q.Type {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionDropdown:
		return true
	}
	return false
}

// Survey แบบสอบถามหลายคำถาม
type Survey struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	IsPrivate     bool               `bson:"isPrivate" json:"isPrivate"`
	AllowedEmails []string           `bson:"allowedEmails" json:"allowedEmails"`
	Questions     []Question         `bson:"questions" json:"questions"`
	BgColor       string             `bson:"bgColor" json:"bgColor"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Creator       *UserSummary       `bson:"-" json:"creator,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CreateSurveyRequest struct {
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	IsPrivate     bool       `json:"isPrivate"`
	AllowedEmails []string   `json:"allowedEmails" validate:"omitempty,dive,email"`
	Questions     []Question `json:"questions" validate:"dive"`
	BgColor       string     `json:"bgColor" validate:"omitempty,hexcolor"`
}

// UpdateSurveyRequest: nil fields are left untouched.
type UpdateSurveyRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=1"`
	Description   *string    `json:"description"`
	IsPrivate     *bool      `json:"isPrivate"`
	AllowedEmails []string   `json:"allowedEmails" validate:"omitempty,dive,email"`
	Questions     []Question `json:"questions" validate:"omitempty,dive"`
	BgColor       *string    `json:"bgColor" validate:"omitempty,hexcolor"`
	IsActive      *bool      `json:"isActive"`
}

type SurveyListResponse struct {
	Surveys []Survey `json:"surveys"`
}

type ActiveSurveysResponse struct {
	Count   int      `json:"count"`
	Surveys []Survey `json:"surveys"`
}

type ToggleActiveResponse struct {
	Message  string `json:"message,omitempty"`
	IsActive bool   `json:"isActive"`
}
