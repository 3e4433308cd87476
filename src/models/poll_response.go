package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PollResponse โหวตของผู้ใช้หนึ่งคนต่อ poll หนึ่งอัน (unique pollId+userId)
type PollResponse struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PollID      primitive.ObjectID `bson:"pollId" json:"pollId"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	OptionIndex int                `bson:"optionIndex" json:"optionIndex"`
	RespondedAt time.Time          `bson:"respondedAt" json:"respondedAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	Voter *UserSummary `bson:"-" json:"voter,omitempty"`
	Poll  *PollSummary `bson:"-" json:"poll,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}
