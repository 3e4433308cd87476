package responses

import (
	"context"
	"testing"
	"time"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedSurvey(t *testing.T, store *repository.Store, owner primitive.ObjectID, questions ...models.Question) *models.Survey {
	t.Helper()
	s := &models.Survey{
		Title:     "Feedback",
		Questions: questions,
		BgColor:   models.DefaultBgColor,
		CreatedBy: owner,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Surveys.Create(context.Background(), s))
	return s
}

var q1 = models.Question{ID: "q1", Type: models.QuestionText, Title: "Say something", Required: true}

func TestSurveyScenario(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	survey := seedSurvey(t, store, primitive.NewObjectID(), q1)

	created, err := ledger.RecordSurveyResponse(ctx, survey.ID, "a@x.com", []models.Answer{{QuestionID: "q1", Answer: "hello"}})
	require.NoError(t, err)

	found, err := ledger.HasResponded(ctx, survey.ID, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	_, err = ledger.RecordSurveyResponse(ctx, survey.ID, "a@x.com", []models.Answer{{QuestionID: "q1", Answer: "again"}})
	assert.ErrorIs(t, err, apperr.ErrDuplicateResponse)

	list, err := ledger.ListResponses(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Answers[0].Answer, "stored record is unchanged")
}

func TestRecordSurveyResponseEmailIsCaseInsensitive(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	survey := seedSurvey(t, store, primitive.NewObjectID(), q1)

	resp, err := ledger.RecordSurveyResponse(ctx, survey.ID, " A@X.com", []models.Answer{{QuestionID: "q1", Answer: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", resp.RespondentEmail)

	_, err = ledger.RecordSurveyResponse(ctx, survey.ID, "a@x.COM", []models.Answer{{QuestionID: "q1", Answer: "hi"}})
	assert.ErrorIs(t, err, apperr.ErrDuplicateResponse)

	found, err := ledger.HasResponded(ctx, survey.ID, "A@x.com")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestRecordSurveyResponseInactiveWritesNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	survey := seedSurvey(t, store, primitive.NewObjectID(), q1)
	inactive := false
	_, err := store.Surveys.Update(ctx, survey.ID, repository.SurveyUpdate{IsActive: &inactive})
	require.NoError(t, err)

	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, err := ledger.RecordSurveyResponse(ctx, survey.ID, email, []models.Answer{{QuestionID: "q1", Answer: "hi"}})
		assert.ErrorIs(t, err, apperr.ErrFormInactive)
	}

	n, err := ledger.CountResponses(ctx, survey.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordSurveyResponseRejects(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	survey := seedSurvey(t, store, primitive.NewObjectID(), q1)

	_, err := ledger.RecordSurveyResponse(ctx, primitive.NewObjectID(), "a@x.com", nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = ledger.RecordSurveyResponse(ctx, survey.ID, "a@x.com", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidAnswer, "required question missing")

	_, err = ledger.RecordSurveyResponse(ctx, survey.ID, "  ", []models.Answer{{QuestionID: "q1", Answer: "hi"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, _ := ledger.CountResponses(ctx, survey.ID)
	assert.Zero(t, n)
}

func TestSubmitSurveyResponsePrivate(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	survey := seedSurvey(t, store, owner, q1)
	private := true
	_, err := store.Surveys.Update(ctx, survey.ID, repository.SurveyUpdate{IsPrivate: &private, AllowedEmails: []string{"in@x.com"}})
	require.NoError(t, err)
	answers := []models.Answer{{QuestionID: "q1", Answer: "hi"}}

	_, err = ledger.SubmitSurveyResponse(ctx, survey.ID, models.Identity{Email: "out@x.com"}, answers)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = ledger.SubmitSurveyResponse(ctx, survey.ID, models.Identity{Email: "IN@x.com"}, answers)
	assert.NoError(t, err)

	_, err = ledger.SubmitSurveyResponse(ctx, survey.ID, models.Identity{UserID: owner, Email: "owner@x.com"}, answers)
	assert.NoError(t, err)

	n, _ := ledger.CountResponses(ctx, survey.ID)
	assert.Equal(t, int64(2), n)
}

func TestSurveyResponseReads(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	survey := seedSurvey(t, store, owner, q1)

	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	first, err := ledger.RecordSurveyResponse(ctx, survey.ID, "first@x.com", []models.Answer{{QuestionID: "q1", Answer: "1"}})
	require.NoError(t, err)
	_, err = ledger.RecordSurveyResponse(ctx, survey.ID, "second@x.com", []models.Answer{{QuestionID: "q1", Answer: "2"}})
	require.NoError(t, err)

	list, err := ledger.ListResponses(ctx, survey.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second@x.com", list[0].RespondentEmail, "newest first")

	all, err := ledger.ListAllSurveyResponses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := ledger.HasResponded(ctx, survey.ID, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	got, err := ledger.GetSurveyResponse(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@x.com", got.RespondentEmail)

	_, err = ledger.GetSurveyResponse(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteSurveyResponseOwnerOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	survey := seedSurvey(t, store, owner, q1)

	resp, err := ledger.RecordSurveyResponse(ctx, survey.ID, "a@x.com", []models.Answer{{QuestionID: "q1", Answer: "x"}})
	require.NoError(t, err)

	err = ledger.DeleteSurveyResponse(ctx, resp.ID, models.Identity{UserID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	require.NoError(t, ledger.DeleteSurveyResponse(ctx, resp.ID, models.Identity{UserID: owner}))
	assert.ErrorIs(t, ledger.DeleteSurveyResponse(ctx, resp.ID, models.Identity{UserID: owner}), apperr.ErrNotFound)
}
