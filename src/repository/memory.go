package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"Backend-PollSurvey/src/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process document store with the same uniqueness rules as
// the Mongo indexes. Every call holds mu, so each operation is atomic the way
// a single-document Mongo write is. WithTransaction serialises whole units of
// work on a separate lock.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users           map[primitive.ObjectID]models.User
	polls           map[primitive.ObjectID]models.Poll
	pollResponses   map[primitive.ObjectID]models.PollResponse
	surveys         map[primitive.ObjectID]models.Survey
	surveyResponses map[primitive.ObjectID]models.SurveyResponse
}

func NewMemory() *Memory {
	return &Memory{
		users:           map[primitive.ObjectID]models.User{},
		polls:           map[primitive.ObjectID]models.Poll{},
		pollResponses:   map[primitive.ObjectID]models.PollResponse{},
		surveys:         map[primitive.ObjectID]models.Survey{},
		surveyResponses: map[primitive.ObjectID]models.SurveyResponse{},
	}
}

// NewMemoryStore returns a Store backed by a fresh Memory.
func NewMemoryStore() *Store {
	return NewMemory().Store()
}

func (m *Memory) Store() *Store {
	return &Store{
		Users:           (*memUsers)(m),
		Polls:           (*memPolls)(m),
		PollResponses:   (*memPollResponses)(m),
		Surveys:         (*memSurveys)(m),
		SurveyResponses: (*memSurveyResponses)(m),
		Tx:              m,
	}
}

func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func clonePoll(p models.Poll) models.Poll {
	p.Options = append([]models.PollOption(nil), p.Options...)
	p.InvitedEmails = cloneStrings(p.InvitedEmails)
	p.Creator = nil
	return p
}

func cloneSurvey(s models.Survey) models.Survey {
	qs := make([]models.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = cloneStrings(q.Options)
		qs[i] = q
	}
	s.Questions = qs
	s.AllowedEmails = cloneStrings(s.AllowedEmails)
	s.Creator = nil
	return s
}

func cloneSurveyResponse(r models.SurveyResponse) models.SurveyResponse {
	r.Answers = append([]models.Answer(nil), r.Answers...)
	return r
}

// --- users ---

type memUsers Memory

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			u.Password = ""
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsers) UpdateName(_ context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Name = name
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return &u, nil
}

// --- polls ---

type memPolls Memory

func (r *memPolls) Create(_ context.Context, poll *models.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if poll.ID.IsZero() {
		poll.ID = primitive.NewObjectID()
	}
	if _, exists := r.polls[poll.ID]; exists {
		return ErrDuplicateKey
	}
	r.polls[poll.ID] = clonePoll(*poll)
	return nil
}

func (r *memPolls) FindByID(_ context.Context, id primitive.ObjectID) (*models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePoll(p)
	return &p, nil
}

func (f PollFilter) matches(p models.Poll) bool {
	if !f.CreatedBy.IsZero() && p.CreatedBy != f.CreatedBy {
		return false
	}
	if f.PublicOnly && !p.IsPublic {
		return false
	}
	if !f.VisibleTo.IsZero() && !p.IsPublic && p.CreatedBy != f.VisibleTo {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	return true
}

func (r *memPolls) Find(_ context.Context, filter PollFilter) ([]models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Poll{}
	for _, p := range r.polls {
		if filter.matches(p) {
			out = append(out, clonePoll(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPolls) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = time.Now()
	r.polls[id] = p
	return nil
}

func (r *memPolls) IncrementVotes(_ context.Context, id primitive.ObjectID, deltas map[int]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return ErrNotFound
	}
	p = clonePoll(p)
	for index, delta := range deltas {
		if index < 0 || index >= len(p.Options) {
			continue
		}
		p.Options[index].VoteCount += delta
	}
	p.UpdatedAt = time.Now()
	r.polls[id] = p
	return nil
}

func (r *memPolls) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[id]; !ok {
		return ErrNotFound
	}
	delete(r.polls, id)
	return nil
}

// --- poll responses ---

type memPollResponses Memory

func (r *memPollResponses) find(pollID, userID primitive.ObjectID) (models.PollResponse, bool) {
	for _, resp := range r.pollResponses {
		if resp.PollID == pollID && resp.UserID == userID {
			return resp, true
		}
	}
	return models.PollResponse{}, false
}

func (r *memPollResponses) Find(_ context.Context, pollID, userID primitive.ObjectID) (*models.PollResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.find(pollID, userID)
	if !ok {
		return nil, ErrNotFound
	}
	return &resp, nil
}

func (r *memPollResponses) Insert(_ context.Context, response *models.PollResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.find(response.PollID, response.UserID); exists {
		return ErrDuplicateKey
	}
	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	r.pollResponses[response.ID] = *response
	return nil
}

func (r *memPollResponses) UpdateOption(_ context.Context, pollID, userID primitive.ObjectID, from, to int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.find(pollID, userID)
	if !ok || resp.OptionIndex != from || from == to {
		return false, nil
	}
	resp.OptionIndex = to
	resp.UpdatedAt = time.Now()
	r.pollResponses[resp.ID] = resp
	return true, nil
}

func (r *memPollResponses) DeleteIfOption(_ context.Context, pollID, userID primitive.ObjectID, optionIndex int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.find(pollID, userID)
	if !ok || resp.OptionIndex != optionIndex {
		return false, nil
	}
	delete(r.pollResponses, resp.ID)
	return true, nil
}

func (r *memPollResponses) list(keep func(models.PollResponse) bool) []models.PollResponse {
	out := []models.PollResponse{}
	for _, resp := range r.pollResponses {
		if keep(resp) {
			out = append(out, resp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RespondedAt.After(out[j].RespondedAt) })
	return out
}

func (r *memPollResponses) ListByPoll(_ context.Context, pollID primitive.ObjectID) ([]models.PollResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(resp models.PollResponse) bool { return resp.PollID == pollID }), nil
}

func (r *memPollResponses) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.PollResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(resp models.PollResponse) bool { return resp.UserID == userID }), nil
}

func (r *memPollResponses) CountByPoll(_ context.Context, pollID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, resp := range r.pollResponses {
		if resp.PollID == pollID {
			n++
		}
	}
	return n, nil
}

func (r *memPollResponses) DeleteByPoll(_ context.Context, pollID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, resp := range r.pollResponses {
		if resp.PollID == pollID {
			delete(r.pollResponses, id)
			n++
		}
	}
	return n, nil
}

// --- surveys ---

type memSurveys Memory

func (r *memSurveys) Create(_ context.Context, survey *models.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if survey.ID.IsZero() {
		survey.ID = primitive.NewObjectID()
	}
	if _, exists := r.surveys[survey.ID]; exists {
		return ErrDuplicateKey
	}
	r.surveys[survey.ID] = cloneSurvey(*survey)
	return nil
}

func (r *memSurveys) FindByID(_ context.Context, id primitive.ObjectID) (*models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = cloneSurvey(s)
	return &s, nil
}

func (r *memSurveys) Find(_ context.Context, filter SurveyFilter) ([]models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Survey{}
	for _, s := range r.surveys {
		if !filter.CreatedBy.IsZero() && s.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		out = append(out, cloneSurvey(s))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memSurveys) Update(_ context.Context, id primitive.ObjectID, u SurveyUpdate) (*models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.IsPrivate != nil {
		s.IsPrivate = *u.IsPrivate
	}
	if u.AllowedEmails != nil {
		s.AllowedEmails = u.AllowedEmails
	}
	if u.Questions != nil {
		s.Questions = u.Questions
	}
	if u.BgColor != nil {
		s.BgColor = *u.BgColor
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	s.UpdatedAt = time.Now()
	s = cloneSurvey(s)
	r.surveys[id] = s
	out := cloneSurvey(s)
	return &out, nil
}

func (r *memSurveys) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveys[id]; !ok {
		return ErrNotFound
	}
	delete(r.surveys, id)
	return nil
}

// --- survey responses ---

type memSurveyResponses Memory

func (r *memSurveyResponses) Insert(_ context.Context, response *models.SurveyResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.surveyResponses {
		if existing.SurveyID == response.SurveyID && existing.RespondentEmail == response.RespondentEmail {
			return ErrDuplicateKey
		}
	}
	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	r.surveyResponses[response.ID] = cloneSurveyResponse(*response)
	return nil
}

func (r *memSurveyResponses) FindByID(_ context.Context, id primitive.ObjectID) (*models.SurveyResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.surveyResponses[id]
	if !ok {
		return nil, ErrNotFound
	}
	resp = cloneSurveyResponse(resp)
	return &resp, nil
}

func (r *memSurveyResponses) FindByRespondent(_ context.Context, surveyID primitive.ObjectID, email string) (*models.SurveyResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.surveyResponses {
		if resp.SurveyID == surveyID && resp.RespondentEmail == email {
			resp = cloneSurveyResponse(resp)
			return &resp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSurveyResponses) list(keep func(models.SurveyResponse) bool) []models.SurveyResponse {
	out := []models.SurveyResponse{}
	for _, resp := range r.surveyResponses {
		if keep(resp) {
			out = append(out, cloneSurveyResponse(resp))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

func (r *memSurveyResponses) ListBySurvey(_ context.Context, surveyID primitive.ObjectID) ([]models.SurveyResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(resp models.SurveyResponse) bool { return resp.SurveyID == surveyID }), nil
}

func (r *memSurveyResponses) ListAll(_ context.Context) ([]models.SurveyResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(models.SurveyResponse) bool { return true }), nil
}

func (r *memSurveyResponses) CountBySurvey(_ context.Context, surveyID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, resp := range r.surveyResponses {
		if resp.SurveyID == surveyID {
			n++
		}
	}
	return n, nil
}

func (r *memSurveyResponses) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveyResponses[id]; !ok {
		return ErrNotFound
	}
	delete(r.surveyResponses, id)
	return nil
}

func (r *memSurveyResponses) DeleteBySurvey(_ context.Context, surveyID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, resp := range r.surveyResponses {
		if resp.SurveyID == surveyID {
			delete(r.surveyResponses, id)
			n++
		}
	}
	return n, nil
}
