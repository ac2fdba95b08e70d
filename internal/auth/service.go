package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"student-result-system/internal/config"
	"student-result-system/internal/db"
	"student-result-system/internal/logger"
	"student-result-system/internal/model"
	"student-result-system/internal/ratelimit"
	"student-result-system/pkg/errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo    db.Repository
	tokens  *TokenIssuer
	limiter ratelimit.Limiter
	cost    int
	log     zerolog.Logger
}

func NewService(repo db.Repository, tokens *TokenIssuer, limiter ratelimit.Limiter, bcryptCost int) *Service {
	if limiter == nil {
		limiter = ratelimit.NopLimiter{}
	}
	return &Service{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		cost:    bcryptCost,
		log:     logger.For("auth"),
	}
}

// Login checks username/password and returns a signed session token.
// Attempts are throttled per client IP and username.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (*model.SessionUser, string, error) {
	allowed, err := s.limiter.Allow(ctx, "login:"+clientIP+":"+username)
	if err != nil {
		// Fail open when the limiter backend is unreachable.
		s.log.Warn().Err(err).Msg("login limiter unavailable")
	} else if !allowed {
		s.log.Warn().Str("username", username).Str("ip", clientIP).Msg("login rate limited")
		return nil, "", errors.ErrRateLimited
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil, "", errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Info().Str("username", username).Msg("invalid password")
		return nil, "", errors.ErrInvalidCredentials
	}

	session := &model.SessionUser{ID: user.ID, Username: user.Username, FullName: user.FullName}
	token, _, err := s.tokens.Issue(*session)
	if err != nil {
		return nil, "", err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")
	return session, token, nil
}

func (s *Service) Authenticate(token string) (*model.SessionUser, error) {
	user, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return user, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// EnsureDefaultAdmin creates the configured admin account if it is missing.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, admin config.DefaultAdmin) error {
	_, err := s.repo.GetUserByUsername(ctx, admin.Username)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return err
	}

	hash, err := s.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	user := &model.User{
		Username:     admin.Username,
		PasswordHash: hash,
		Email:        admin.Email,
		FullName:     admin.FullName,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}

	s.log.Info().Str("username", admin.Username).Msg("default admin user created")
	return nil
}
