// Package responses is the response ledger: one poll vote per (poll, user) and
// one survey submission per (survey, email), with the poll tally kept in step.
package responses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Backend-PollSurvey/src/metrics"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/access"
	"Backend-PollSurvey/src/services/apperr"
	"Backend-PollSurvey/src/services/tally"
	"Backend-PollSurvey/src/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxVoteAttempts bounds retries after losing a concurrent write on the same (poll, user).
const maxVoteAttempts = 3

// errVoteRace: another request changed the same response between our read and our write.
var errVoteRace = errors.New("concurrent vote on the same response")

type Ledger struct {
	users           repository.UserRepository
	polls           repository.PollRepository
	pollResponses   repository.PollResponseRepository
	surveys         repository.SurveyRepository
	surveyResponses repository.SurveyResponseRepository
	tx              repository.TxRunner
	tally           *tally.Aggregator
	locker          Locker
	now             func() time.Time
}

type Option func(*Ledger)

// WithLocker replaces the in-process vote lock, e.g. with one shared through Redis
// when several instances serve the same database.
func WithLocker(lk Locker) Option {
	return func(l *Ledger) {
		if lk != nil {
			l.locker = lk
		}
	}
}

func NewLedger(store *repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		users:           store.Users,
		polls:           store.Polls,
		pollResponses:   store.PollResponses,
		surveys:         store.Surveys,
		surveyResponses: store.SurveyResponses,
		tx:              store.Tx,
		tally:           tally.NewAggregator(store.Polls),
		locker:          newKeyedMutex(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func notFound(kind string, id primitive.ObjectID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id.Hex(), apperr.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, id.Hex(), err)
}

// ---------- Poll votes ----------

// RecordPollResponse creates, keeps or changes the caller's vote and moves the
// tally with it. It does not look at isActive or visibility.
func (l *Ledger) RecordPollResponse(ctx context.Context, pollID, userID primitive.ObjectID, optionIndex int) (*models.PollResponse, error) {
	poll, err := l.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, notFound("poll", pollID, err)
	}
	return l.recordVote(ctx, poll, userID, optionIndex)
}

// SubmitPollVote is the HTTP entry point: access and isActive are checked before the ledger write.
func (l *Ledger) SubmitPollVote(ctx context.Context, pollID primitive.ObjectID, voter models.Identity, optionIndex int) (*models.PollResponse, error) {
	poll, err := l.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, notFound("poll", pollID, err)
	}
	if !access.CanView(!poll.IsPublic, poll.CreatedBy, poll.InvitedEmails, voter) {
		metrics.PollVotes.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("poll %s: %w", pollID.Hex(), apperr.ErrAccessDenied)
	}
	if !poll.IsActive {
		metrics.PollVotes.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("poll %s: %w", pollID.Hex(), apperr.ErrFormInactive)
	}
	return l.recordVote(ctx, poll, voter.UserID, optionIndex)
}

func (l *Ledger) recordVote(ctx context.Context, poll *models.Poll, userID primitive.ObjectID, optionIndex int) (*models.PollResponse, error) {
	if err := tally.Validate(poll.Options, optionIndex); err != nil {
		metrics.PollVotes.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	// one writer per (poll, user): the response write and its tally write land before the next change starts
	unlock, err := l.locker.Lock(ctx, voteLockKey(poll.ID, userID))
	if err != nil {
		metrics.PollVotes.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("lock vote on poll %s: %w", poll.ID.Hex(), err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		var (
			result  *models.PollResponse
			outcome string
		)
		err := l.tx.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			result, outcome, err = l.recordVoteOnce(ctx, poll.ID, len(poll.Options), userID, optionIndex)
			return err
		})
		if errors.Is(err, errVoteRace) {
			metrics.VoteRetries.Inc()
			utils.Log.WithFields(logrus.Fields{
				"pollId":  poll.ID.Hex(),
				"userId":  userID.Hex(),
				"attempt": attempt,
			}).Debug("vote lost a concurrent write, retrying")
			continue
		}
		if err != nil {
			metrics.PollVotes.WithLabelValues(metrics.OutcomeFailed).Inc()
			return nil, err
		}
		metrics.PollVotes.WithLabelValues(outcome).Inc()
		return result, nil
	}

	metrics.PollVotes.WithLabelValues(metrics.OutcomeFailed).Inc()
	return nil, fmt.Errorf("vote on poll %s gave up after %d attempts: %w", poll.ID.Hex(), maxVoteAttempts, apperr.ErrConflict)
}

// recordVoteOnce writes the response first and the tally second. The tally only
// moves when the response write actually changed state; if the tally write fails
// see compensate.
func (l *Ledger) recordVoteOnce(ctx context.Context, pollID primitive.ObjectID, optionCount int, userID primitive.ObjectID, optionIndex int) (*models.PollResponse, string, error) {
	existing, err := l.pollResponses.Find(ctx, pollID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("load vote: %w", err)
	}

	now := l.now()

	if existing == nil {
		resp := &models.PollResponse{
			PollID:      pollID,
			UserID:      userID,
			OptionIndex: optionIndex,
			RespondedAt: now,
			UpdatedAt:   now,
		}
		if err := l.pollResponses.Insert(ctx, resp); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return nil, "", errVoteRace
			}
			return nil, "", fmt.Errorf("insert vote: %w", err)
		}
		if tallyErr := l.tally.ApplyVoteDelta(ctx, pollID, optionIndex, 1); tallyErr != nil {
			undo := func(ctx context.Context) (bool, error) {
				return l.pollResponses.DeleteIfOption(ctx, pollID, userID, optionIndex)
			}
			redo := func(ctx context.Context) error {
				return l.tally.ApplyVoteDelta(ctx, pollID, optionIndex, 1)
			}
			if err := l.compensate(ctx, pollID, userID, tallyErr, undo, redo); err != nil {
				return nil, "", err
			}
		}
		return resp, metrics.OutcomeCreated, nil
	}

	if existing.OptionIndex == optionIndex {
		return existing, metrics.OutcomeUnchanged, nil
	}

	from := existing.OptionIndex
	changed, err := l.pollResponses.UpdateOption(ctx, pollID, userID, from, optionIndex)
	if err != nil {
		return nil, "", fmt.Errorf("change vote: %w", err)
	}
	if !changed {
		return nil, "", errVoteRace
	}

	// ค่าเก่าที่อยู่นอกช่วงตัวเลือก (ข้อมูลเก่า) จะไม่ถูกหักออก
	move := func(ctx context.Context) error {
		if from >= 0 && from < optionCount {
			return l.tally.ChangeVote(ctx, pollID, from, optionIndex)
		}
		return l.tally.ApplyVoteDelta(ctx, pollID, optionIndex, 1)
	}
	if tallyErr := move(ctx); tallyErr != nil {
		undo := func(ctx context.Context) (bool, error) {
			return l.pollResponses.UpdateOption(ctx, pollID, userID, optionIndex, from)
		}
		if err := l.compensate(ctx, pollID, userID, tallyErr, undo, move); err != nil {
			return nil, "", err
		}
	}

	existing.OptionIndex = optionIndex
	existing.UpdatedAt = now
	return existing, metrics.OutcomeChanged, nil
}

// compensate runs after the response write succeeded and its tally write failed.
// undo reverts the response write only if the row is still as we left it; a row
// that has moved on already carries later votes built on ours, so the tally is
// re-applied instead and the vote stands (nil error).
func (l *Ledger) compensate(ctx context.Context, pollID, userID primitive.ObjectID, cause error,
	undo func(context.Context) (bool, error), redo func(context.Context) error) error {
	undone, err := undo(ctx)
	if err != nil {
		l.logCompensationFailure(pollID, userID, err)
		return cause
	}
	if undone {
		return cause
	}

	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		if err = redo(ctx); err == nil {
			utils.Log.WithError(cause).WithFields(logrus.Fields{
				"pollId":  pollID.Hex(),
				"userId":  userID.Hex(),
				"attempt": attempt,
			}).Warn("vote already moved on, tally re-applied")
			return nil
		}
	}
	l.logCompensationFailure(pollID, userID, err)
	return cause
}

func (l *Ledger) logCompensationFailure(pollID, userID primitive.ObjectID, err error) {
	utils.Log.WithError(err).WithFields(logrus.Fields{
		"pollId": pollID.Hex(),
		"userId": userID.Hex(),
	}).Error("❌ vote and tally out of step, tally write could not be undone or re-applied")
}

// ListPollResponses returns the votes on a poll with the voter's name and email.
func (l *Ledger) ListPollResponses(ctx context.Context, pollID primitive.ObjectID) ([]models.PollResponse, error) {
	list, err := l.pollResponses.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("list votes of poll %s: %w", pollID.Hex(), err)
	}

	ids := make([]primitive.ObjectID, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.UserID)
	}
	users, err := l.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load voters: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}
	for i := range list {
		list[i].Voter = byID[list[i].UserID]
	}
	return list, nil
}

// ListUserPollResponses returns the caller's votes with each poll's question and options.
func (l *Ledger) ListUserPollResponses(ctx context.Context, userID primitive.ObjectID) ([]models.PollResponse, error) {
	list, err := l.pollResponses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list votes of user %s: %w", userID.Hex(), err)
	}

	polls := map[primitive.ObjectID]*models.PollSummary{}
	for i := range list {
		id := list[i].PollID
		summary, seen := polls[id]
		if !seen {
			poll, err := l.polls.FindByID(ctx, id)
			switch {
			case err == nil:
				summary = &models.PollSummary{ID: poll.ID, Question: poll.Question, Options: poll.Options}
			case errors.Is(err, repository.ErrNotFound):
				summary = nil
			default:
				return nil, fmt.Errorf("load poll %s: %w", id.Hex(), err)
			}
			polls[id] = summary
		}
		list[i].Poll = summary
	}
	return list, nil
}

func (l *Ledger) CountPollResponses(ctx context.Context, pollID primitive.ObjectID) (int64, error) {
	n, err := l.pollResponses.CountByPoll(ctx, pollID)
	if err != nil {
		return 0, fmt.Errorf("count votes of poll %s: %w", pollID.Hex(), err)
	}
	return n, nil
}

// ---------- Survey submissions ----------

// RecordSurveyResponse stores one immutable submission per (survey, email).
func (l *Ledger) RecordSurveyResponse(ctx context.Context, surveyID primitive.ObjectID, respondentEmail string, answers []models.Answer) (*models.SurveyResponse, error) {
	survey, err := l.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, notFound("survey", surveyID, err)
	}
	return l.recordSubmission(ctx, survey, respondentEmail, answers)
}

// SubmitSurveyResponse adds the private-survey allowlist check in front of RecordSurveyResponse.
func (l *Ledger) SubmitSurveyResponse(ctx context.Context, surveyID primitive.ObjectID, respondent models.Identity, answers []models.Answer) (*models.SurveyResponse, error) {
	survey, err := l.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, notFound("survey", surveyID, err)
	}
	if !access.CanView(survey.IsPrivate, survey.CreatedBy, survey.AllowedEmails, respondent) {
		metrics.SurveySubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("survey %s: %w", surveyID.Hex(), apperr.ErrAccessDenied)
	}
	return l.recordSubmission(ctx, survey, respondent.Email, answers)
}

func (l *Ledger) recordSubmission(ctx context.Context, survey *models.Survey, respondentEmail string, answers []models.Answer) (*models.SurveyResponse, error) {
	resp, err := l.insertSubmission(ctx, survey, respondentEmail, answers)
	switch {
	case err == nil:
		metrics.SurveySubmissions.WithLabelValues(metrics.OutcomeCreated).Inc()
	case errors.Is(err, apperr.ErrFormInactive), errors.Is(err, apperr.ErrDuplicateResponse),
		errors.Is(err, apperr.ErrInvalidAnswer), errors.Is(err, apperr.ErrValidation):
		metrics.SurveySubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
	default:
		metrics.SurveySubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
	}
	return resp, err
}

func (l *Ledger) insertSubmission(ctx context.Context, survey *models.Survey, respondentEmail string, answers []models.Answer) (*models.SurveyResponse, error) {
	if !survey.IsActive {
		return nil, fmt.Errorf("survey %s: %w", survey.ID.Hex(), apperr.ErrFormInactive)
	}

	email := access.NormalizeEmail(respondentEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: respondentEmail is required", apperr.ErrValidation)
	}

	if _, err := l.surveyResponses.FindByRespondent(ctx, survey.ID, email); err == nil {
		return nil, fmt.Errorf("survey %s: %w", survey.ID.Hex(), apperr.ErrDuplicateResponse)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check previous response: %w", err)
	}

	normalized, err := ValidateAnswers(survey.Questions, answers)
	if err != nil {
		return nil, err
	}

	resp := &models.SurveyResponse{
		SurveyID:        survey.ID,
		RespondentEmail: email,
		Answers:         normalized,
		SubmittedAt:     l.now(),
	}
	if err := l.surveyResponses.Insert(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("survey %s: %w", survey.ID.Hex(), apperr.ErrDuplicateResponse)
		}
		return nil, fmt.Errorf("insert survey response: %w", err)
	}
	return resp, nil
}

// HasResponded returns the stored submission or nil when there is none.
func (l *Ledger) HasResponded(ctx context.Context, surveyID primitive.ObjectID, respondentEmail string) (*models.SurveyResponse, error) {
	resp, err := l.surveyResponses.FindByRespondent(ctx, surveyID, access.NormalizeEmail(respondentEmail))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup survey response: %w", err)
	}
	return resp, nil
}

// ListResponses returns a survey's submissions, newest first.
func (l *Ledger) ListResponses(ctx context.Context, surveyID primitive.ObjectID) ([]models.SurveyResponse, error) {
	list, err := l.surveyResponses.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses of survey %s: %w", surveyID.Hex(), err)
	}
	return list, nil
}

func (l *Ledger) CountResponses(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	n, err := l.surveyResponses.CountBySurvey(ctx, surveyID)
	if err != nil {
		return 0, fmt.Errorf("count responses of survey %s: %w", surveyID.Hex(), err)
	}
	return n, nil
}

func (l *Ledger) ListAllSurveyResponses(ctx context.Context) ([]models.SurveyResponse, error) {
	list, err := l.surveyResponses.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list survey responses: %w", err)
	}
	return list, nil
}

func (l *Ledger) GetSurveyResponse(ctx context.Context, id primitive.ObjectID) (*models.SurveyResponse, error) {
	resp, err := l.surveyResponses.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("survey response", id, err)
	}
	return resp, nil
}

// DeleteSurveyResponse is allowed only for the owner of the survey.
func (l *Ledger) DeleteSurveyResponse(ctx context.Context, id primitive.ObjectID, caller models.Identity) error {
	resp, err := l.surveyResponses.FindByID(ctx, id)
	if err != nil {
		return notFound("survey response", id, err)
	}
	survey, err := l.surveys.FindByID(ctx, resp.SurveyID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load survey %s: %w", resp.SurveyID.Hex(), err)
	}
	if survey == nil || !access.IsOwner(survey.CreatedBy, caller) {
		return fmt.Errorf("survey response %s: %w", id.Hex(), apperr.ErrAccessDenied)
	}
	if err := l.surveyResponses.Delete(ctx, id); err != nil {
		return notFound("survey response", id, err)
	}
	return nil
}
