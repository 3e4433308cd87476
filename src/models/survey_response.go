package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Answer คำตอบหนึ่งข้อ; ชนิดของ Answer ขึ้นกับ type ของคำถาม
// text/singleChoice/dropdown: string, multipleChoice: []string, date: "2006-01-02" or RFC3339.
type Answer struct {
	QuestionID string      `bson:"questionId" json:"questionId" validate:"required"`
	Answer     interface{} `bson:"answer" json:"answer"`
}

// SurveyResponse คำตอบของผู้ตอบหนึ่งคน (unique surveyId+respondentEmail), แก้ไขไม่ได้
type SurveyResponse struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SurveyID        primitive.ObjectID `bson:"surveyId" json:"surveyId"`
	RespondentEmail string             `bson:"respondentEmail" json:"respondentEmail"`
	Answers         []Answer           `bson:"answers" json:"answers"`
	SubmittedAt     time.Time          `bson:"submittedAt" json:"submittedAt"`
}

type SubmitSurveyResponseRequest struct {
	SurveyID        string   `json:"surveyId" validate:"required"`
	RespondentEmail string   `json:"respondentEmail" validate:"required,email"`
	Answers         []Answer `json:"answers" validate:"dive"`
}

// RespondentAnswers projection used by GET /survey-responses/survey/:surveyId
type RespondentAnswers struct {
	RespondentEmail string   `json:"respondentEmail"`
	Answers         []Answer `json:"answers"`
}
