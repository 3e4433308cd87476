package surveys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/access"
	"Backend-PollSurvey/src/services/apperr"
	"Backend-PollSurvey/src/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	users     repository.UserRepository
	surveys   repository.SurveyRepository
	responses repository.SurveyResponseRepository
	tx        repository.TxRunner
}

func NewService(store *repository.Store) *Service {
	return &Service{
		users:     store.Users,
		surveys:   store.Surveys,
		responses: store.SurveyResponses,
		tx:        store.Tx,
	}
}

// prepareQuestions เติม id ที่หายไปด้วย uuid และกัน id ซ้ำในแบบสอบถามเดียวกัน
func prepareQuestions(in []models.Question) ([]models.Question, error) {
	out := make([]models.Question, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, q := range in {
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", apperr.ErrValidation, q.ID)
		}
		seen[q.ID] = struct{}{}

		q.Title = strings.TrimSpace(q.Title)
		if q.IsChoice() {
			opts := make([]string, 0, len(q.Options))
			for _, o := range q.Options {
				if o = strings.TrimSpace(o); o != "" {
					opts = append(opts, o)
				}
			}
			q.Options = opts
		} else {
			q.Options = nil
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) CreateSurvey(ctx context.Context, creator models.Identity, req models.CreateSurveyRequest) (*models.Survey, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	questions, err := prepareQuestions(req.Questions)
	if err != nil {
		return nil, err
	}
	bgColor := req.BgColor
	if bgColor == "" {
		bgColor = models.DefaultBgColor
	}

	now := time.Now()
	survey := &models.Survey{
		Title:         title,
		Description:   req.Description,
		IsPrivate:     req.IsPrivate,
		AllowedEmails: access.NormalizeEmails(req.AllowedEmails),
		Questions:     questions,
		BgColor:       bgColor,
		CreatedBy:     creator.UserID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.surveys.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("create survey: %w", err)
	}
	return survey, nil
}

// GetSurvey: private surveys are visible to the creator and allowedEmails only.
func (s *Service) GetSurvey(ctx context.Context, id primitive.ObjectID, viewer models.Identity) (*models.Survey, error) {
	survey, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(survey.IsPrivate, survey.CreatedBy, survey.AllowedEmails, viewer) {
		return nil, fmt.Errorf("survey %s: %w", id.Hex(), apperr.ErrAccessDenied)
	}
	s.populate(ctx, []*models.Survey{survey})
	return survey, nil
}

func (s *Service) ListAll(ctx context.Context) ([]models.Survey, error) {
	return s.list(ctx, repository.SurveyFilter{})
}

func (s *Service) ListMine(ctx context.Context, owner models.Identity) ([]models.Survey, error) {
	return s.list(ctx, repository.SurveyFilter{CreatedBy: owner.UserID})
}

func (s *Service) ListMyActive(ctx context.Context, owner models.Identity) (*models.ActiveSurveysResponse, error) {
	list, err := s.list(ctx, repository.SurveyFilter{CreatedBy: owner.UserID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return &models.ActiveSurveysResponse{Count: len(list), Surveys: list}, nil
}

// UpdateSurvey แก้เฉพาะ field ที่ส่งมา (เจ้าของเท่านั้น)
func (s *Service) UpdateSurvey(ctx context.Context, id primitive.ObjectID, caller models.Identity, req models.UpdateSurveyRequest) (*models.Survey, error) {
	current, err := s.owned(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	update := repository.SurveyUpdate{
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		BgColor:     req.BgColor,
		IsActive:    req.IsActive,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", apperr.ErrValidation)
		}
		update.Title = &title
	}
	if req.AllowedEmails != nil {
		update.AllowedEmails = access.NormalizeEmails(req.AllowedEmails)
	}
	if req.Questions != nil {
		questions, err := prepareQuestions(req.Questions)
		if err != nil {
			return nil, err
		}
		if err := s.checkAnsweredQuestionsKept(ctx, current, questions); err != nil {
			return nil, err
		}
		update.Questions = questions
	}

	updated, err := s.surveys.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("survey %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("update survey %s: %w", id.Hex(), err)
	}
	return updated, nil
}

// checkAnsweredQuestionsKept: หลังมีคนตอบแล้ว ห้ามลบหรือเปลี่ยน type ของคำถามเดิม
// เพิ่มคำถามใหม่หรือแก้ title/options ได้
func (s *Service) checkAnsweredQuestionsKept(ctx context.Context, current *models.Survey, next []models.Question) error {
	n, err := s.responses.CountBySurvey(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("count responses of survey %s: %w", current.ID.Hex(), err)
	}
	if n == 0 {
		return nil
	}
	types := make(map[string]string, len(next))
	for _, q := range next {
		types[q.ID] = q.Type
	}
	for _, q := range current.Questions {
		if t, ok := types[q.ID]; !ok || t != q.Type {
			return fmt.Errorf("%w: survey has %d responses, question %q cannot be removed or change type", apperr.ErrConflict, n, q.ID)
		}
	}
	return nil
}

func (s *Service) ToggleActive(ctx context.Context, id primitive.ObjectID, caller models.Identity) (*models.ToggleActiveResponse, error) {
	survey, err := s.owned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	next := !survey.IsActive
	if _, err := s.surveys.Update(ctx, id, repository.SurveyUpdate{IsActive: &next}); err != nil {
		return nil, fmt.Errorf("toggle survey %s: %w", id.Hex(), err)
	}
	state := "inactive"
	if next {
		state = "active"
	}
	return &models.ToggleActiveResponse{Message: "Survey is now " + state, IsActive: next}, nil
}

// DeleteSurvey ลบแบบสอบถามพร้อมคำตอบทั้งหมด
func (s *Service) DeleteSurvey(ctx context.Context, id primitive.ObjectID, caller models.Identity) error {
	if _, err := s.owned(ctx, id, caller); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.responses.DeleteBySurvey(ctx, id)
		if err != nil {
			return fmt.Errorf("delete responses of survey %s: %w", id.Hex(), err)
		}
		if err := s.surveys.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("survey %s: %w", id.Hex(), apperr.ErrNotFound)
			}
			return fmt.Errorf("delete survey %s: %w", id.Hex(), err)
		}
		utils.Log.WithFields(logrus.Fields{"surveyId": id.Hex(), "responses": removed}).Info("survey deleted")
		return nil
	})
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	survey, err := s.surveys.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("survey %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load survey %s: %w", id.Hex(), err)
	}
	return survey, nil
}

func (s *Service) owned(ctx context.Context, id primitive.ObjectID, caller models.Identity) (*models.Survey, error) {
	survey, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.IsOwner(survey.CreatedBy, caller) {
		return nil, fmt.Errorf("survey %s: %w", id.Hex(), apperr.ErrAccessDenied)
	}
	return survey, nil
}

func (s *Service) list(ctx context.Context, filter repository.SurveyFilter) ([]models.Survey, error) {
	list, err := s.surveys.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	ptrs := make([]*models.Survey, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	s.populate(ctx, ptrs)
	return list, nil
}

func (s *Service) populate(ctx context.Context, surveys []*models.Survey) {
	if len(surveys) == 0 {
		return
	}
	ids := make([]primitive.ObjectID, 0, len(surveys))
	for _, sv := range surveys {
		ids = append(ids, sv.CreatedBy)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		utils.Log.WithError(err).Warn("could not load survey creators")
		return
	}
	byID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}
	for _, sv := range surveys {
		sv.Creator = byID[sv.CreatedBy]
	}
}
