package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("username and password are required")
)

// Config holds configuration for the account service
type Config struct {
	// Secret signs access tokens
	Secret string
	// TokenDuration is the access token lifetime
	TokenDuration time.Duration
	Issuer        string
	// BcryptCost is the password hashing cost
	BcryptCost int
}

// DefaultConfig returns default account configuration
func DefaultConfig() Config {
	return Config{
		Secret:        "typerace-dev-secret",
		TokenDuration: time.Hour,
		Issuer:        "typerace",
		BcryptCost:    bcrypt.DefaultCost,
	}
}

// RegisterParams holds the fields of a new account
type RegisterParams struct {
	Username string
	Email    string
	Password string
	Avatar   string
	Color    string
}

// Service registers accounts, authenticates them and serves profiles
type Service struct {
	directory storage.Directory
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
}

// New creates a new account Service
func New(directory storage.Directory, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = defaults.TokenDuration
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		directory: directory,
		clock:     clock,
		logger:    logger.With(slog.String("component", "accounts")),
		cfg:       cfg,
	}
}

// Register creates an account
func (s *Service) Register(ctx context.Context, p RegisterParams) (*model.Account, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" || p.Password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	account := &model.Account{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: string(hash),
		Avatar:       p.Avatar,
		Color:        p.Color,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.directory.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("username", account.Username))
	return account, nil
}

// Login checks credentials and issues an access token
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.Account, error) {
	account, err := s.directory.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Me returns the account behind verified claims
func (s *Service) Me(ctx context.Context, claims *Claims) (*model.Account, error) {
	return s.directory.GetAccount(ctx, claims.AccountID)
}

// UpdateProfile changes an account's avatar and color
func (s *Service) UpdateProfile(ctx context.Context, id model.AccountID, update model.ProfileUpdate) (*model.Account, error) {
	account, err := s.directory.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Avatar != nil {
		account.Avatar = *update.Avatar
	}
	if update.Color != nil {
		account.Color = *update.Color
	}
	account.UpdatedAt = s.clock.Now()

	if err := s.directory.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Profile returns the public profile for a display name. ok is false when no
// account uses that name.
func (s *Service) Profile(ctx context.Context, displayName string) (profile model.Profile, ok bool, err error) {
	account, err := s.directory.GetAccountByUsername(ctx, displayName)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.Profile{}, false, nil
	}
	if err != nil {
		return model.Profile{}, false, err
	}
	return model.Profile{Avatar: account.Avatar, Color: account.Color}, true, nil
}
