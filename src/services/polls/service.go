package polls

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

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	users     repository.UserRepository
	polls     repository.PollRepository
	responses repository.PollResponseRepository
	tx        repository.TxRunner
}

func NewService(store *repository.Store) *Service {
	return &Service{
		users:     store.Users,
		polls:     store.Polls,
		responses: store.PollResponses,
		tx:        store.Tx,
	}
}

// CreatePoll สร้าง poll ใหม่ ต้องมีตัวเลือกอย่างน้อย 2 ตัว
func (s *Service) CreatePoll(ctx context.Context, creator models.Identity, req models.CreatePollRequest) (*models.Poll, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperr.ErrValidation)
	}

	options := make([]models.PollOption, 0, len(req.Options))
	for _, text := range req.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		options = append(options, models.PollOption{Text: text})
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("%w: question and at least 2 options required", apperr.ErrValidation)
	}

	pollType := strings.TrimSpace(req.Type)
	if pollType == "" {
		pollType = models.DefaultPollType
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	now := time.Now()
	poll := &models.Poll{
		Question:      question,
		Type:          pollType,
		Options:       options,
		CreatedBy:     creator.UserID,
		IsActive:      true,
		IsPublic:      isPublic,
		InvitedEmails: access.NormalizeEmails(req.Emails),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	return poll, nil
}

// GetPoll returns a poll the viewer is allowed to see.
func (s *Service) GetPoll(ctx context.Context, id primitive.ObjectID, viewer models.Identity) (*models.Poll, error) {
	poll, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(!poll.IsPublic, poll.CreatedBy, poll.InvitedEmails, viewer) {
		return nil, fmt.Errorf("poll %s: %w", id.Hex(), apperr.ErrAccessDenied)
	}
	s.populate(ctx, []*models.Poll{poll})
	return poll, nil
}

// ListVisible: public polls, plus the viewer's own polls when logged in.
func (s *Service) ListVisible(ctx context.Context, viewer models.Identity) ([]models.Poll, error) {
	filter := repository.PollFilter{PublicOnly: true}
	if !viewer.UserID.IsZero() {
		filter = repository.PollFilter{VisibleTo: viewer.UserID}
	}
	return s.list(ctx, filter)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Poll, error) {
	return s.list(ctx, repository.PollFilter{})
}

func (s *Service) ListMine(ctx context.Context, owner models.Identity) ([]models.Poll, error) {
	return s.list(ctx, repository.PollFilter{CreatedBy: owner.UserID})
}

func (s *Service) ListMyActive(ctx context.Context, owner models.Identity) (*models.ActivePollsResponse, error) {
	list, err := s.list(ctx, repository.PollFilter{CreatedBy: owner.UserID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return &models.ActivePollsResponse{Count: len(list), Polls: list}, nil
}

// ToggleActive สลับสถานะเปิด/ปิดรับโหวต (เจ้าของเท่านั้น)
func (s *Service) ToggleActive(ctx context.Context, id primitive.ObjectID, caller models.Identity) (bool, error) {
	poll, err := s.owned(ctx, id, caller)
	if err != nil {
		return false, err
	}
	next := !poll.IsActive
	if err := s.polls.SetActive(ctx, id, next); err != nil {
		return false, fmt.Errorf("toggle poll %s: %w", id.Hex(), err)
	}
	return next, nil
}

// DeletePoll ลบ poll พร้อมคำตอบทั้งหมดของ poll นั้น
func (s *Service) DeletePoll(ctx context.Context, id primitive.ObjectID, caller models.Identity) error {
	if _, err := s.owned(ctx, id, caller); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.responses.DeleteByPoll(ctx, id)
		if err != nil {
			return fmt.Errorf("delete responses of poll %s: %w", id.Hex(), err)
		}
		if err := s.polls.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("poll %s: %w", id.Hex(), apperr.ErrNotFound)
			}
			return fmt.Errorf("delete poll %s: %w", id.Hex(), err)
		}
		utils.Log.WithFields(logrus.Fields{"pollId": id.Hex(), "responses": removed}).Info("poll deleted")
		return nil
	})
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.Poll, error) {
	poll, err := s.polls.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("poll %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load poll %s: %w", id.Hex(), err)
	}
	return poll, nil
}

func (s *Service) owned(ctx context.Context, id primitive.ObjectID, caller models.Identity) (*models.Poll, error) {
	poll, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.IsOwner(poll.CreatedBy, caller) {
		return nil, fmt.Errorf("poll %s: %w", id.Hex(), apperr.ErrAccessDenied)
	}
	return poll, nil
}

func (s *Service) list(ctx context.Context, filter repository.PollFilter) ([]models.Poll, error) {
	list, err := s.polls.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	ptrs := make([]*models.Poll, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	s.populate(ctx, ptrs)
	return list, nil
}

// populate fills Creator with name and email. Lookup failures leave it empty.
func (s *Service) populate(ctx context.Context, polls []*models.Poll) {
	if len(polls) == 0 {
		return
	}
	ids := make([]primitive.ObjectID, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.CreatedBy)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		utils.Log.WithError(err).Warn("could not load poll creators")
		return
	}
	byID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}
	for _, p := range polls {
		p.Creator = byID[p.CreatedBy]
	}
}
