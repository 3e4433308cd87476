// Package repository defines the persistence contracts used by the services,
// with a MongoDB implementation and an in-memory one for tests and local runs.
package repository

import (
	"context"
	"errors"

	"Backend-PollSurvey/src/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository persists users; email is unique.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateName(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error)
}

// PollFilter narrows Find. Zero values match everything.
type PollFilter struct {
	CreatedBy primitive.ObjectID
	// VisibleTo matches public polls plus polls created by this user.
	VisibleTo  primitive.ObjectID
	PublicOnly bool
	ActiveOnly bool
}

type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Poll, error)
	Find(ctx context.Context, filter PollFilter) ([]models.Poll, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	// IncrementVotes adds every delta to options[index].voteCount in one document write.
	IncrementVotes(ctx context.Context, id primitive.ObjectID, deltas map[int]int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PollResponseRepository interface {
	Find(ctx context.Context, pollID, userID primitive.ObjectID) (*models.PollResponse, error)
	// Insert returns ErrDuplicateKey when (pollId, userId) already exists.
	Insert(ctx context.Context, response *models.PollResponse) error
	// UpdateOption moves the response from one option to another only if it still
	// points at from. It reports whether a document was changed.
	UpdateOption(ctx context.Context, pollID, userID primitive.ObjectID, from, to int) (bool, error)
	// DeleteIfOption removes the response only if it still points at optionIndex.
	DeleteIfOption(ctx context.Context, pollID, userID primitive.ObjectID, optionIndex int) (bool, error)
	ListByPoll(ctx context.Context, pollID primitive.ObjectID) ([]models.PollResponse, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PollResponse, error)
	CountByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error)
	DeleteByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error)
}

type SurveyFilter struct {
	CreatedBy  primitive.ObjectID
	ActiveOnly bool
}

// SurveyUpdate: nil fields are not written.
type SurveyUpdate struct {
	Title         *string
	Description   *string
	IsPrivate     *bool
	AllowedEmails []string
	Questions     []models.Question
	BgColor       *string
	IsActive      *bool
}

type SurveyRepository interface {
	Create(ctx context.Context, survey *models.Survey) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Survey, error)
	// Find returns surveys newest first.
	Find(ctx context.Context, filter SurveyFilter) ([]models.Survey, error)
	Update(ctx context.Context, id primitive.ObjectID, update SurveyUpdate) (*models.Survey, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SurveyResponseRepository interface {
	// Insert returns ErrDuplicateKey when (surveyId, respondentEmail) already exists.
	Insert(ctx context.Context, response *models.SurveyResponse) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SurveyResponse, error)
	FindByRespondent(ctx context.Context, surveyID primitive.ObjectID, email string) (*models.SurveyResponse, error)
	// ListBySurvey and ListAll return newest first.
	ListBySurvey(ctx context.Context, surveyID primitive.ObjectID) ([]models.SurveyResponse, error)
	ListAll(ctx context.Context) ([]models.SurveyResponse, error)
	CountBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error)
}

// TxRunner runs fn as one unit of work when the backing store supports it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository the application needs.
type Store struct {
	Users           UserRepository
	Polls           PollRepository
	PollResponses   PollResponseRepository
	Surveys         SurveyRepository
	SurveyResponses SurveyResponseRepository
	Tx              TxRunner
}
