package responses

import (
	"fmt"
	"strings"
	"time"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func invalidAnswer(questionID, format string, args ...interface{}) error {
	return fmt.Errorf("%w: question %q: %s", apperr.ErrInvalidAnswer, questionID, fmt.Sprintf(format, args...))
}

// ValidateAnswers checks answers against the survey questions and returns them
// in normalized form: choice lists become []string, strings are trimmed.
func ValidateAnswers(questions []models.Question, answers []models.Answer) ([]models.Answer, error) {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := make([]models.Answer, 0, len(answers))
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, invalidAnswer(a.QuestionID, "unknown question")
		}
		if _, dup := seen[a.QuestionID]; dup {
			return nil, invalidAnswer(a.QuestionID, "answered more than once")
		}
		seen[a.QuestionID] = struct{}{}

		value, err := normalizeAnswer(q, a.Answer)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Answer{QuestionID: a.QuestionID, Answer: value})
	}

	for _, q := range questions {
		if !q.Required {
			continue
		}
		if _, ok := seen[q.ID]; !ok {
			return nil, invalidAnswer(q.ID, "answer is required")
		}
	}
	return out, nil
}

func normalizeAnswer(q models.Question, raw interface{}) (interface{}, error) {
	if isBlank(raw) {
		if q.Required {
			return nil, invalidAnswer(q.ID, "answer is required")
		}
		return raw, nil
	}

	switch q.Type {
	case models.QuestionText:
		s, ok := raw.(string)
		if !ok {
			return nil, invalidAnswer(q.ID, "expected text")
		}
		return strings.TrimSpace(s), nil

	case models.QuestionSingleChoice, models.QuestionDropdown:
		s, ok := raw.(string)
		if !ok {
			return nil, invalidAnswer(q.ID, "expected one option")
		}
		if !contains(q.Options, s) {
			return nil, invalidAnswer(q.ID, "%q is not an option", s)
		}
		return s, nil

	case models.QuestionMultipleChoice:
		picked, ok := stringList(raw)
		if !ok {
			return nil, invalidAnswer(q.ID, "expected a list of options")
		}
		dedup := make(map[string]struct{}, len(picked))
		for _, p := range picked {
			if !contains(q.Options, p) {
				return nil, invalidAnswer(q.ID, "%q is not an option", p)
			}
			if _, dup := dedup[p]; dup {
				return nil, invalidAnswer(q.ID, "%q picked twice", p)
			}
			dedup[p] = struct{}{}
		}
		return picked, nil

	case models.QuestionDate:
		s, ok := raw.(string)
		if !ok {
			return nil, invalidAnswer(q.ID, "expected a date")
		}
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return nil, invalidAnswer(q.ID, "%q is not a date", s)
	}

	return nil, invalidAnswer(q.ID, "unsupported question type %q", q.Type)
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case primitive.A:
		return len(t) == 0
	}
	return false
}

// stringList accepts the shapes a list arrives in: JSON ([]interface{}),
// BSON (primitive.A) or already typed.
func stringList(v interface{}) ([]string, bool) {
	var items []interface{}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []interface{}:
		items = t
	case primitive.A:
		items = t
	default:
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
