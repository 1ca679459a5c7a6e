package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crisp/internal/models"
	"crisp/internal/repositories"
	"crisp/internal/utils"
)

var (
	ErrInvalidToken = errors.New("the token is either incorrect or has already been used")
	ErrTokenExists  = errors.New("a token already exists for this email")
)

// Mailer sends the invitation carrying a freshly issued token.
type Mailer func(to, subject, body string) error

// Service issues and checks one-time interview tokens.
type Service struct {
	repo     *repositories.TokenRepository
	logger   *zap.Logger
	mailer   Mailer
	now      func() time.Time
	newToken func() string
}

type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func NewService(repo *repositories.TokenRepository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate returns the token record when it exists and is unused.
func (s *Service) Validate(ctx context.Context, token string) (*models.InterviewToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	t, err := s.repo.GetByToken(ctx, token)
	if errors.Is(err, repositories.ErrTokenNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("look up token: %w", err)
	}
	if !t.IsValid {
		return nil, ErrInvalidToken
	}
	return t, nil
}

// Invalidate marks the token as used once its interview completes.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	if err := s.repo.Invalidate(ctx, token, s.now()); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	s.logger.Info("interview token invalidated")
	return nil
}

// Issue creates a token for email unless one was issued before.
func (s *Service) Issue(ctx context.Context, email string, companyDomain *string) (models.IssuedToken, error) {
	email = utils.NormalizeEmail(email)
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return models.IssuedToken{}, ErrTokenExists
	}
	if !errors.Is(err, repositories.ErrTokenNotFound) {
		return models.IssuedToken{}, fmt.Errorf("check existing token: %w", err)
	}

	t := &models.InterviewToken{
		Token:         s.newToken(),
		Email:         email,
		CompanyDomain: companyDomain,
		IsValid:       true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return models.IssuedToken{}, fmt.Errorf("save token: %w", err)
	}

	s.invite(email, t.Token)
	return models.IssuedToken{Email: email, Token: t.Token}, nil
}

// IssueBatch issues tokens for every email, reporting the ones skipped
// because they already have a token.
func (s *Service) IssueBatch(ctx context.Context, emails []string, companyDomain *string) (models.IssueTokensResponse, error) {
	resp := models.IssueTokensResponse{Issued: []models.IssuedToken{}, Skipped: []string{}}
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = utils.NormalizeEmail(email)
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		issued, err := s.Issue(ctx, email, companyDomain)
		switch {
		case errors.Is(err, ErrTokenExists):
			resp.Skipped = append(resp.Skipped, email)
		case err != nil:
			return resp, err
		default:
			resp.Issued = append(resp.Issued, issued)
		}
	}
	s.logger.Info("issued interview tokens",
		zap.Int("issued", len(resp.Issued)),
		zap.Int("skipped", len(resp.Skipped)))
	return resp, nil
}

func (s *Service) List(ctx context.Context, companyDomain *string) ([]models.InterviewToken, error) {
	return s.repo.List(ctx, companyDomain)
}

func (s *Service) invite(email, token string) {
	if s.mailer == nil {
		return
	}
	body := "You have been invited to an interview.\n\nYour one-time interview token is: " + token +
		"\n\nEnter it on the candidate page to begin. The token stops working once your interview is complete."
	if err := s.mailer(email, "Your interview token", body); err != nil {
		s.logger.Warn("failed to send interview invitation", zap.String("email", email), zap.Error(err))
	}
}
