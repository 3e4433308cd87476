package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/apperr"
	"Backend-PollSurvey/src/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)

type Service struct {
	users     repository.UserRepository
	jwt       *utils.JWTManager
	blacklist *utils.TokenBlacklist
}

func NewService(users repository.UserRepository, jwt *utils.JWTManager, blacklist *utils.TokenBlacklist) *Service {
	return &Service{users: users, jwt: jwt, blacklist: blacklist}
}

// Register สร้างผู้ใช้ใหม่ (email ไม่ซ้ำ) แล้วออก token ให้ทันที
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user already exists", apperr.ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user already exists", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// ตรวจสอบ password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

// Logout puts the token on the blacklist until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return s.blacklist.Add(ctx, token, claims.Remaining())
}

// GetInfo คืนเฉพาะ id, name, email
func (s *Service) GetInfo(ctx context.Context, id primitive.ObjectID) (*models.UserSummary, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load user %s: %w", id.Hex(), err)
	}
	return user.Summary(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, caller models.Identity, req models.UpdateProfileRequest) (*models.UserSummary, error) {
	user, err := s.users.UpdateName(ctx, caller.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", caller.UserID.Hex(), apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("update user %s: %w", caller.UserID.Hex(), err)
	}
	return user.Summary(), nil
}

func (s *Service) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.Generate(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.AuthResponse{ID: user.ID, Name: user.Name, Email: user.Email, Token: token}, nil
}
