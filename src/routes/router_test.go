package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Backend-PollSurvey/src/config"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	InitRoutes(app, Deps{
		Store: repository.NewMemoryStore(),
		Config: &config.Config{
			DBDriver:       config.DriverMemory,
			JWTSecret:      "test-secret",
			JWTTTL:         time.Hour,
			DBTimeout:      time.Second,
			VoteRatePerMin: 6000,
			VoteRateBurst:  100,
		},
	})
	return app
}

// call ยิง request แล้ว decode body ลง out (ถ้าไม่ nil) คืน status code
func call(t *testing.T, app *fiber.App, method, path, token string, body, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func register(t *testing.T, app *fiber.App, name, email string) models.AuthResponse {
	t.Helper()
	var auth models.AuthResponse
	status := call(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Name: name, Email: email, Password: "secret1"}, &auth)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, auth.Token)
	return auth
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/health", "", nil, nil))
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	ann := register(t, app, "Ann", "ann@x.com")

	var errResp models.ErrorResponse
	status := call(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Name: "Ann", Email: "ANN@x.com", Password: "secret1"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)

	status = call(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Name: "A", Email: "nope", Password: "1"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	var login models.AuthResponse
	status = call(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "ann@x.com", Password: "secret1"}, &login)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, ann.ID, login.ID)

	status = call(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "ann@x.com", Password: "wrong"}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/polls/my-polls", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/polls/my-polls", "bad-token", nil, nil))
}

func TestPollVoteFlow(t *testing.T) {
	app := newTestApp(t)
	owner := register(t, app, "Owner", "owner@x.com")
	voter := register(t, app, "Voter", "voter@x.com")

	var poll models.Poll
	status := call(t, app, http.MethodPost, "/api/polls", owner.Token, models.CreatePollRequest{Question: "Lunch?", Options: []string{"Yes", "No"}}, &poll)
	require.Equal(t, http.StatusCreated, status)

	vote := func(token string, idx int) int {
		return call(t, app, http.MethodPost, "/api/poll-responses", token, models.VoteRequest{PollID: poll.ID.Hex(), OptionIndex: &idx}, nil)
	}
	assert.Equal(t, http.StatusCreated, vote(voter.Token, 0))
	assert.Equal(t, http.StatusCreated, vote(owner.Token, 0))
	// เปลี่ยนใจ: ย้ายจาก Yes ไป No
	assert.Equal(t, http.StatusCreated, vote(voter.Token, 1))
	assert.Equal(t, http.StatusBadRequest, vote(voter.Token, 5))

	var got models.Poll
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/polls/"+poll.ID.Hex(), "", nil, &got))
	assert.Equal(t, 1, got.Options[0].VoteCount)
	assert.Equal(t, 1, got.Options[1].VoteCount)

	var count models.CountResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/poll-responses/poll/"+poll.ID.Hex()+"/count", "", nil, &count))
	assert.EqualValues(t, 2, count.Count)

	var list []models.PollResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/poll-responses/poll/"+poll.ID.Hex(), "", nil, &list))
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].Voter)

	var mine []models.PollResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/poll-responses/user", voter.Token, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].OptionIndex)
	require.NotNil(t, mine[0].Poll)
	assert.Equal(t, "Lunch?", mine[0].Poll.Question)

	// legacy route คืน poll ที่อัปเดตแล้ว
	idx := 0
	var updated models.Poll
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/polls/"+poll.ID.Hex()+"/vote", voter.Token, models.VoteRequest{OptionIndex: &idx}, &updated))
	assert.Equal(t, 2, updated.Options[0].VoteCount)
	assert.Equal(t, 0, updated.Options[1].VoteCount)

	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodGet, "/api/poll-responses/poll/not-an-id/count", "", nil, nil))
}

func TestPollOwnerOperations(t *testing.T) {
	app := newTestApp(t)
	owner := register(t, app, "Owner", "owner@x.com")
	other := register(t, app, "Other", "other@x.com")

	var poll models.Poll
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/api/polls", owner.Token, models.CreatePollRequest{Question: "Q", Options: []string{"a", "b"}}, &poll))
	path := "/api/polls/" + poll.ID.Hex()

	assert.Equal(t, http.StatusForbidden, call(t, app, http.MethodPatch, path+"/toggle-active", other.Token, nil, nil))

	var toggled models.ToggleActiveResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, path+"/toggle-active", owner.Token, nil, &toggled))
	assert.False(t, toggled.IsActive)

	// โพลที่ปิดแล้วโหวตไม่ได้
	idx := 0
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/api/poll-responses", other.Token, models.VoteRequest{PollID: poll.ID.Hex(), OptionIndex: &idx}, nil))

	assert.Equal(t, http.StatusForbidden, call(t, app, http.MethodDelete, path, other.Token, nil, nil))
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodDelete, path, owner.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, path, "", nil, nil))
}

func TestSurveyFlow(t *testing.T) {
	app := newTestApp(t)
	owner := register(t, app, "Owner", "owner@x.com")

	var survey models.Survey
	status := call(t, app, http.MethodPost, "/api/surveys", owner.Token, models.CreateSurveyRequest{
		Title: "Team lunch",
		Questions: []models.Question{
			{ID: "where", Type: models.QuestionSingleChoice, Title: "Where?", Required: true, Options: []string{"Pizza", "Sushi"}},
			{ID: "why", Type: models.QuestionText, Title: "Why?"},
		},
	}, &survey)
	require.Equal(t, http.StatusCreated, status)

	submit := func(email string, answer interface{}) int {
		return call(t, app, http.MethodPost, "/api/survey-responses", "", models.SubmitSurveyResponseRequest{
			SurveyID:        survey.ID.Hex(),
			RespondentEmail: email,
			Answers:         []models.Answer{{QuestionID: "where", Answer: answer}},
		}, nil)
	}
	assert.Equal(t, http.StatusCreated, submit("guest@x.com", "Pizza"))
	assert.Equal(t, http.StatusConflict, submit("GUEST@x.com", "Sushi"))
	assert.Equal(t, http.StatusBadRequest, submit("other@x.com", "Tacos"))

	var count models.CountResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/survey-responses/survey/"+survey.ID.Hex()+"/count", "", nil, &count))
	assert.EqualValues(t, 1, count.Count)

	var answers []models.RespondentAnswers
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/survey-responses/survey/"+survey.ID.Hex(), "", nil, &answers))
	require.Len(t, answers, 1)
	assert.Equal(t, "guest@x.com", answers[0].RespondentEmail)

	var existing []models.SurveyResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/survey-responses?surveyId="+survey.ID.Hex()+"&respondentEmail=Guest@x.com", "", nil, &existing))
	assert.Len(t, existing, 1)
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/survey-responses?surveyId="+survey.ID.Hex()+"&respondentEmail=nobody@x.com", "", nil, &existing))
	assert.Empty(t, existing)
}

func TestPrivateSurveyAccess(t *testing.T) {
	app := newTestApp(t)
	owner := register(t, app, "Owner", "owner@x.com")
	stranger := register(t, app, "Stranger", "stranger@x.com")

	var survey models.Survey
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/api/surveys", owner.Token, models.CreateSurveyRequest{
		Title:         "Secret",
		IsPrivate:     true,
		AllowedEmails: []string{"invited@x.com"},
	}, &survey))
	path := "/api/surveys/" + survey.ID.Hex()

	var errResp models.ErrorResponse
	assert.Equal(t, http.StatusForbidden, call(t, app, http.MethodGet, path, stranger.Token, nil, &errResp))
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, path, owner.Token, nil, nil))

	submit := func(email string) int {
		return call(t, app, http.MethodPost, "/api/survey-responses", "", models.SubmitSurveyResponseRequest{SurveyID: survey.ID.Hex(), RespondentEmail: email}, nil)
	}
	assert.Equal(t, http.StatusForbidden, submit("stranger@x.com"))
	assert.Equal(t, http.StatusCreated, submit("invited@x.com"))
}
