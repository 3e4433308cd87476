package responses

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/apperr"
	"Backend-PollSurvey/src/services/tally"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// noTx lets concurrent ledger calls interleave freely on the in-memory store.
type noTx struct{}

func (noTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

// flakyPolls fails IncrementVotes while fail is set, and for the next failNext calls.
type flakyPolls struct {
	repository.PollRepository
	fail     bool
	failNext int
}

func (p *flakyPolls) IncrementVotes(ctx context.Context, id primitive.ObjectID, deltas map[int]int) error {
	if p.fail {
		return errors.New("write concern timeout")
	}
	if p.failNext > 0 {
		p.failNext--
		return errors.New("write concern timeout")
	}
	return p.PollRepository.IncrementVotes(ctx, id, deltas)
}

// movedResponses behaves as if another request already moved the row: after
// passUpdates successful changes, conditional updates and deletes match nothing.
type movedResponses struct {
	repository.PollResponseRepository
	passUpdates int
}

func (r *movedResponses) UpdateOption(ctx context.Context, pollID, userID primitive.ObjectID, from, to int) (bool, error) {
	if r.passUpdates == 0 {
		return false, nil
	}
	r.passUpdates--
	return r.PollResponseRepository.UpdateOption(ctx, pollID, userID, from, to)
}

func (r *movedResponses) DeleteIfOption(context.Context, primitive.ObjectID, primitive.ObjectID, int) (bool, error) {
	return false, nil
}

// watchedPolls keeps the lowest counter seen after any tally write. Once armed,
// the next tally write signals entered and waits for release.
type watchedPolls struct {
	repository.PollRepository
	mu      sync.Mutex
	lowest  int
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newWatchedPolls(inner repository.PollRepository) *watchedPolls {
	return &watchedPolls{PollRepository: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *watchedPolls) arm() {
	p.mu.Lock()
	p.armed = true
	p.mu.Unlock()
}

func (p *watchedPolls) IncrementVotes(ctx context.Context, id primitive.ObjectID, deltas map[int]int) error {
	p.mu.Lock()
	gate := p.armed
	p.armed = false
	p.mu.Unlock()
	if gate {
		close(p.entered)
		select {
		case <-p.release:
		case <-time.After(time.Second):
		}
	}

	if err := p.PollRepository.IncrementVotes(ctx, id, deltas); err != nil {
		return err
	}
	poll, err := p.PollRepository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range poll.Options {
		if o.VoteCount < p.lowest {
			p.lowest = o.VoteCount
		}
	}
	return nil
}

func (p *watchedPolls) minSeen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lowest
}

// racyResponses simulates losing races: the first staleFinds reads report no vote,
// and the first lostUpdates conditional updates match nothing.
type racyResponses struct {
	repository.PollResponseRepository
	mu          sync.Mutex
	staleFinds  int
	lostUpdates int
}

func (r *racyResponses) Find(ctx context.Context, pollID, userID primitive.ObjectID) (*models.PollResponse, error) {
	r.mu.Lock()
	stale := r.staleFinds > 0
	if stale {
		r.staleFinds--
	}
	r.mu.Unlock()
	if stale {
		return nil, repository.ErrNotFound
	}
	return r.PollResponseRepository.Find(ctx, pollID, userID)
}

func (r *racyResponses) UpdateOption(ctx context.Context, pollID, userID primitive.ObjectID, from, to int) (bool, error) {
	r.mu.Lock()
	lost := r.lostUpdates > 0
	if lost {
		r.lostUpdates--
	}
	r.mu.Unlock()
	if lost {
		return false, nil
	}
	return r.PollResponseRepository.UpdateOption(ctx, pollID, userID, from, to)
}

func seedUser(t *testing.T, store *repository.Store, email string) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, CreatedAt: time.Now()}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

func seedPoll(t *testing.T, store *repository.Store, owner primitive.ObjectID, texts ...string) *models.Poll {
	t.Helper()
	p := &models.Poll{
		Question:  "Pick one",
		Type:      models.DefaultPollType,
		CreatedBy: owner,
		IsActive:  true,
		IsPublic:  true,
		CreatedAt: time.Now(),
	}
	for _, text := range texts {
		p.Options = append(p.Options, models.PollOption{Text: text})
	}
	require.NoError(t, store.Polls.Create(context.Background(), p))
	return p
}

func counts(t *testing.T, store *repository.Store, pollID primitive.ObjectID) []int {
	t.Helper()
	p, err := store.Polls.FindByID(context.Background(), pollID)
	require.NoError(t, err)
	out := make([]int, len(p.Options))
	for i, o := range p.Options {
		out[i] = o.VoteCount
	}
	return out
}

func assertTallyMatchesLedger(t *testing.T, store *repository.Store, pollID primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()
	p, err := store.Polls.FindByID(ctx, pollID)
	require.NoError(t, err)
	list, err := store.PollResponses.ListByPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, len(list), tally.Total(p.Options), "sum of counters equals distinct respondents")
	assert.True(t, tally.Consistent(p.Options, list), "counters match responses")
}

func TestRecordPollResponseScenario(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	owner := seedUser(t, store, "owner@x.com")
	u1 := seedUser(t, store, "u1@x.com")
	u2 := seedUser(t, store, "u2@x.com")
	poll := seedPoll(t, store, owner.ID, "Yes", "No")

	_, err := ledger.RecordPollResponse(ctx, poll.ID, u1.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, counts(t, store, poll.ID))

	resp, err := ledger.RecordPollResponse(ctx, poll.ID, u1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.OptionIndex)
	assert.Equal(t, []int{0, 1}, counts(t, store, poll.ID))

	_, err = ledger.RecordPollResponse(ctx, poll.ID, u2.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, counts(t, store, poll.ID))

	n, err := ledger.CountPollResponses(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assertTallyMatchesLedger(t, store, poll.ID)
}

func TestRecordPollResponseIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b", "c")
	user := primitive.NewObjectID()

	first, err := ledger.RecordPollResponse(ctx, poll.ID, user, 2)
	require.NoError(t, err)
	second, err := ledger.RecordPollResponse(ctx, poll.ID, user, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []int{0, 0, 1}, counts(t, store, poll.ID))
}

func TestRecordPollResponseChangeTouchesOnlyTwoOptions(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b", "c", "d")

	others := []struct {
		index int
	}{{0}, {2}, {3}, {3}}
	for _, o := range others {
		_, err := ledger.RecordPollResponse(ctx, poll.ID, primitive.NewObjectID(), o.index)
		require.NoError(t, err)
	}
	user := primitive.NewObjectID()
	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)
	before := counts(t, store, poll.ID)

	_, err = ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	require.NoError(t, err)
	after := counts(t, store, poll.ID)

	assert.Equal(t, before[0]-1, after[0])
	assert.Equal(t, before[1]+1, after[1])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, before[3], after[3])
	assert.Equal(t, sum(before), sum(after), "total unchanged")
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestRecordPollResponseRejects(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	tests := []struct {
		name   string
		pollID primitive.ObjectID
		index  int
		want   error
	}{
		{"negative index", poll.ID, -1, apperr.ErrInvalidOption},
		{"index past the end", poll.ID, 2, apperr.ErrInvalidOption},
		{"unknown poll", primitive.NewObjectID(), 0, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.RecordPollResponse(ctx, tt.pollID, user, tt.index)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, []int{0, 0}, counts(t, store, poll.ID))
	n, _ := ledger.CountPollResponses(ctx, poll.ID)
	assert.Zero(t, n)
}

func TestSubmitPollVoteChecksActiveAndAccess(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	inactive := seedPoll(t, store, owner, "a", "b")
	require.NoError(t, store.Polls.SetActive(ctx, inactive.ID, false))

	private := seedPoll(t, store, owner, "a", "b")
	private.IsPublic = false
	require.NoError(t, store.Polls.Delete(ctx, private.ID))
	private.InvitedEmails = []string{"friend@x.com"}
	require.NoError(t, store.Polls.Create(ctx, private))

	_, err := ledger.SubmitPollVote(ctx, inactive.ID, models.Identity{UserID: primitive.NewObjectID()}, 0)
	assert.ErrorIs(t, err, apperr.ErrFormInactive)
	assert.Equal(t, []int{0, 0}, counts(t, store, inactive.ID))

	_, err = ledger.SubmitPollVote(ctx, private.ID, models.Identity{UserID: primitive.NewObjectID(), Email: "stranger@x.com"}, 0)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = ledger.SubmitPollVote(ctx, private.ID, models.Identity{UserID: primitive.NewObjectID(), Email: "Friend@X.com"}, 1)
	assert.NoError(t, err)

	_, err = ledger.SubmitPollVote(ctx, private.ID, models.Identity{UserID: owner}, 0)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 1}, counts(t, store, private.ID))
}

func TestRecordPollResponseUndoesInsertWhenTallyFails(t *testing.T) {
	store := repository.NewMemoryStore()
	polls := &flakyPolls{PollRepository: store.Polls}
	store.Polls = polls
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	polls.fail = true
	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.Error(t, err)

	_, err = store.PollResponses.Find(ctx, poll.ID, user)
	assert.ErrorIs(t, err, repository.ErrNotFound, "inserted vote is removed again")
	assert.Equal(t, []int{0, 0}, counts(t, store, poll.ID))
}

func TestRecordPollResponseUndoesChangeWhenTallyFails(t *testing.T) {
	store := repository.NewMemoryStore()
	polls := &flakyPolls{PollRepository: store.Polls}
	store.Polls = polls
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)

	polls.fail = true
	_, err = ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	require.Error(t, err)

	resp, err := store.PollResponses.Find(ctx, poll.ID, user)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.OptionIndex)
	assert.Equal(t, []int{1, 0}, counts(t, store, poll.ID))
}

func TestRecordPollResponseReappliesTallyWhenChangeCannotBeUndone(t *testing.T) {
	store := repository.NewMemoryStore()
	polls := &flakyPolls{PollRepository: store.Polls}
	store.Polls = polls
	moved := &movedResponses{PollResponseRepository: store.PollResponses}
	store.PollResponses = moved
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)

	// the change goes through, its tally write fails once and the undo finds the row moved
	moved.passUpdates = 1
	polls.failNext = 1
	resp, err := ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.OptionIndex)
	assert.Equal(t, []int{0, 1}, counts(t, store, poll.ID))
	assertTallyMatchesLedger(t, store, poll.ID)
}

func TestRecordPollResponseReappliesTallyWhenInsertCannotBeUndone(t *testing.T) {
	store := repository.NewMemoryStore()
	polls := &flakyPolls{PollRepository: store.Polls}
	store.Polls = polls
	store.PollResponses = &movedResponses{PollResponseRepository: store.PollResponses}
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	polls.failNext = 1
	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, counts(t, store, poll.ID))
	assertTallyMatchesLedger(t, store, poll.ID)
}

func TestRecordPollResponseReportsErrorWhenTallyStaysDown(t *testing.T) {
	store := repository.NewMemoryStore()
	polls := &flakyPolls{PollRepository: store.Polls}
	store.Polls = polls
	store.PollResponses = &movedResponses{PollResponseRepository: store.PollResponses}
	ledger := NewLedger(store)
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")

	polls.fail = true
	_, err := ledger.RecordPollResponse(context.Background(), poll.ID, primitive.NewObjectID(), 0)
	assert.Error(t, err)
}

func TestRecordPollResponseCountersNeverNegativeWhileChangesInterleave(t *testing.T) {
	store := repository.NewMemoryStore()
	store.Tx = noTx{}
	polls := newWatchedPolls(store.Polls)
	store.Polls = polls
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b", "c")
	user := primitive.NewObjectID()

	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)

	// first change parks inside its tally write; the second change by the same user starts meanwhile
	polls.arm()
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	}()
	<-polls.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = ledger.RecordPollResponse(ctx, poll.ID, user, 2)
	}()
	time.Sleep(20 * time.Millisecond)
	close(polls.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.GreaterOrEqual(t, polls.minSeen(), 0, "no counter is ever visible below zero")
	assert.Equal(t, []int{0, 0, 1}, counts(t, store, poll.ID))

	resp, err := store.PollResponses.Find(ctx, poll.ID, user)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.OptionIndex)
	assertTallyMatchesLedger(t, store, poll.ID)
}

func TestRecordPollResponseRetriesAfterLosingInsertRace(t *testing.T) {
	store := repository.NewMemoryStore()
	racy := &racyResponses{PollResponseRepository: store.PollResponses}
	store.PollResponses = racy
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)

	// the next read misses the vote, so the insert hits the unique key and the call retries
	racy.staleFinds = 1
	resp, err := ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.OptionIndex)
	assert.Equal(t, []int{0, 1}, counts(t, store, poll.ID))
}

func TestRecordPollResponseRetriesAfterLosingUpdateRace(t *testing.T) {
	store := repository.NewMemoryStore()
	racy := &racyResponses{PollResponseRepository: store.PollResponses}
	store.PollResponses = racy
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")
	user := primitive.NewObjectID()

	_, err := ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	require.NoError(t, err)

	racy.lostUpdates = 1
	_, err = ledger.RecordPollResponse(ctx, poll.ID, user, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, counts(t, store, poll.ID))

	racy.lostUpdates = maxVoteAttempts
	_, err = ledger.RecordPollResponse(ctx, poll.ID, user, 0)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, []int{0, 1}, counts(t, store, poll.ID), "nothing moves when every attempt loses")
}

func TestRecordPollResponseConcurrentVoters(t *testing.T) {
	store := repository.NewMemoryStore()
	store.Tx = noTx{}
	polls := newWatchedPolls(store.Polls)
	store.Polls = polls
	ledger := NewLedger(store)
	ctx := context.Background()
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b", "c")

	users := make([]primitive.ObjectID, 10)
	for i := range users {
		users[i] = primitive.NewObjectID()
	}

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for i, u := range users {
			wg.Add(1)
			go func(u primitive.ObjectID, index int) {
				defer wg.Done()
				_, err := ledger.RecordPollResponse(ctx, poll.ID, u, index)
				if err != nil {
					assert.ErrorIs(t, err, apperr.ErrConflict)
				}
			}(u, (i+round)%3)
		}
	}
	wg.Wait()

	n, err := ledger.CountPollResponses(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(users)), n, "one response per user")
	assert.GreaterOrEqual(t, polls.minSeen(), 0)
	assertTallyMatchesLedger(t, store, poll.ID)
}

func TestListPollResponsesPopulates(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	voter := seedUser(t, store, "voter@x.com")
	poll := seedPoll(t, store, primitive.NewObjectID(), "a", "b")

	_, err := ledger.RecordPollResponse(ctx, poll.ID, voter.ID, 1)
	require.NoError(t, err)

	byPoll, err := ledger.ListPollResponses(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, byPoll, 1)
	require.NotNil(t, byPoll[0].Voter)
	assert.Equal(t, "voter@x.com", byPoll[0].Voter.Email)

	byUser, err := ledger.ListUserPollResponses(ctx, voter.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.NotNil(t, byUser[0].Poll)
	assert.Equal(t, "Pick one", byUser[0].Poll.Question)
	assert.Equal(t, 1, byUser[0].Poll.Options[1].VoteCount)
}
