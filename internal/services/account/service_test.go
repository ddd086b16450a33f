package account

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *mocks.MockClock
	storage *memory.Storage
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New()
	cfg := DefaultConfig()
	cfg.Secret = "test-secret"
	cfg.BcryptCost = bcrypt.MinCost
	s.service = New(s.storage, s.clock, testutil.NopLogger(), cfg)
}

func (s *ServiceSuite) register(username string) *model.Account {
	account, err := s.service.Register(s.ctx, RegisterParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "hunter2",
		Avatar:   "cat",
		Color:    "red",
	})
	s.Require().NoError(err)
	return account
}

func (s *ServiceSuite) TestRegister() {
	account := s.register("alice")

	s.NotEmpty(account.ID)
	s.NotEqual("hunter2", account.PasswordHash)
	s.Equal(s.clock.Now(), account.CreatedAt)

	stored, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(account.ID, stored.ID)
}

func (s *ServiceSuite) TestRegisterDuplicate() {
	s.register("alice")

	_, err := s.service.Register(s.ctx, RegisterParams{Username: "alice", Password: "x"})
	s.ErrorIs(err, model.ErrAccountExists)
}

func (s *ServiceSuite) TestRegisterMissingFields() {
	_, err := s.service.Register(s.ctx, RegisterParams{Username: "  ", Password: "x"})
	s.ErrorIs(err, ErrMissingFields)

	_, err = s.service.Register(s.ctx, RegisterParams{Username: "alice"})
	s.ErrorIs(err, ErrMissingFields)
}

func (s *ServiceSuite) TestLogin() {
	registered := s.register("alice")

	token, account, err := s.service.Login(s.ctx, "alice", "hunter2")
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.Equal(registered.ID, account.ID)

	claims, err := s.service.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal(registered.ID, claims.AccountID)
	s.Equal("alice", claims.Username)
	s.Equal("typerace", claims.Issuer)
	s.Equal(string(registered.ID), claims.Subject)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	s.register("alice")

	_, _, err := s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, _, err := s.service.Login(s.ctx, "nobody", "hunter2")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestTokenExpires() {
	s.register("alice")
	token, _, err := s.service.Login(s.ctx, "alice", "hunter2")
	s.Require().NoError(err)

	s.clock.Advance(59 * time.Minute)
	_, err = s.service.ValidateToken(token)
	s.NoError(err)

	s.clock.Advance(2 * time.Minute)
	_, err = s.service.ValidateToken(token)
	s.ErrorIs(err, ErrExpiredToken)
}

func (s *ServiceSuite) TestValidateTokenRejectsGarbage() {
	_, err := s.service.ValidateToken("not-a-token")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateTokenRejectsOtherSecret() {
	s.register("alice")
	other := New(s.storage, s.clock, testutil.NopLogger(), Config{Secret: "other", BcryptCost: bcrypt.MinCost})
	token, _, err := other.Login(s.ctx, "alice", "hunter2")
	s.Require().NoError(err)

	_, err = s.service.ValidateToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateTokenRejectsNoneAlgorithm() {
	claims := Claims{
		AccountID: "x",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "typerace",
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.service.ValidateToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestMe() {
	registered := s.register("alice")
	token, _, _ := s.service.Login(s.ctx, "alice", "hunter2")
	claims, err := s.service.ValidateToken(token)
	s.Require().NoError(err)

	account, err := s.service.Me(s.ctx, claims)
	s.Require().NoError(err)
	s.Equal(registered.ID, account.ID)
	s.Equal("alice@example.com", account.Email)
}

func (s *ServiceSuite) TestUpdateProfile() {
	registered := s.register("alice")
	s.clock.Advance(time.Minute)

	color := "blue"
	account, err := s.service.UpdateProfile(s.ctx, registered.ID, model.ProfileUpdate{Color: &color})
	s.Require().NoError(err)
	s.Equal("blue", account.Color)
	s.Equal("cat", account.Avatar)
	s.Equal(s.clock.Now(), account.UpdatedAt)

	_, err = s.service.UpdateProfile(s.ctx, "ghost", model.ProfileUpdate{Color: &color})
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ServiceSuite) TestProfile() {
	s.register("alice")

	profile, ok, err := s.service.Profile(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.Profile{Avatar: "cat", Color: "red"}, profile)

	_, ok, err = s.service.Profile(s.ctx, "guest-bob")
	s.NoError(err)
	s.False(ok)
}
