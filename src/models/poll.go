package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPollType = "Single Choice"

// PollOption ตัวเลือกของ poll พร้อมจำนวนโหวต
type PollOption struct {
	Text      string `bson:"text" json:"text"`
	VoteCount int    `bson:"voteCount" json:"voteCount"`
}

// Poll คำถามเดียวที่มีตัวเลือก >= 2 ตัว
type Poll struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Question      string             `bson:"question" json:"question"`
	Type          string             `bson:"type" json:"type"`
	Options       []PollOption       `bson:"options" json:"options"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Creator       *UserSummary       `bson:"-" json:"creator,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	IsPublic      bool               `bson:"isPublic" json:"isPublic"`
	InvitedEmails []string           `bson:"invitedEmails" json:"invitedEmails"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PollSummary is what a poll response carries when listed per user.
type PollSummary struct {
	ID       primitive.ObjectID `json:"id"`
	Question string             `json:"question"`
	Options  []PollOption       `json:"options"`
}

type CreatePollRequest struct {
	Question string   `json:"question" validate:"required"`
	Options  []string `json:"options" validate:"required,min=2,dive,required"`
	Type     string   `json:"type"`
	IsPublic *bool    `json:"isPublic"`
	Emails   []string `json:"emails" validate:"omitempty,dive,email"`
}

// VoteRequest body ของ POST /poll-responses และ /polls/:id/vote
type VoteRequest struct {
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex" validate:"required"`
}

type ActivePollsResponse struct {
	Count int    `json:"count"`
	Polls []Poll `json:"polls"`
}
