package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/rosterd/internal/apperr"
	"github.com/rosterhq/rosterd/internal/credential"
	"github.com/rosterhq/rosterd/internal/validate"
)

// registerRules is the registration field policy: username 3-30 characters,
// syntactic email capped at 50, password 6-72 with an uppercase letter, a
// lowercase letter and a digit (three independent rules so each failure
// carries its own message), and a matching confirmation.
var registerRules = validate.NewRuleSet().
	Field("username", validate.Length(3, 30)).
	Field("email", validate.Email(), validate.MaxLength(50)).
	Field("password", validate.Length(6, 72), validate.HasUppercase(), validate.HasLowercase(), validate.HasDigit()).
	MustMatch("password", "confirm_password")

// loginRules checks presence only. Policy rules are deliberately absent so a
// login response can never reveal which rules a stored password satisfies.
var loginRules = validate.NewRuleSet().
	Field("username", validate.MinLength(1)).
	Field("password", validate.MinLength(1))

// Service sequences the register and login workflows: validation first, then
// hashing or verification, then storage. It holds no mutable state of its own.
type Service struct {
	repo   Repository
	hasher *credential.Hasher
	logger *slog.Logger
}

// NewService wires the orchestrator. The hasher is constructed once at
// startup and injected here rather than reached through package state.
func NewService(repo Repository, hasher *credential.Hasher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, logger: logger}
}

// Register validates the payload, hashes the password and persists the new
// user. Validation always runs before anything is hashed or stored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	violations := registerRules.Validate(validate.Payload{
		"username":         in.Username,
		"email":            in.Email,
		"password":         in.Password,
		"confirm_password": in.ConfirmPassword,
	})
	if !violations.OK() {
		return User{}, apperr.Validation(violations)
	}

	encoded, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, apperr.Hashing(err)
	}

	user := User{
		ID:        uuid.NewString(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  encoded,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return User{}, apperr.Conflict(err)
		}
		return User{}, apperr.Storage(err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Login validates the payload, looks the user up and verifies the password.
// An unknown username and a wrong password produce the same outward error; the
// distinction is only logged.
func (s *Service) Login(ctx context.Context, in LoginInput) (User, error) {
	violations := loginRules.Validate(validate.Payload{
		"username": in.Username,
		"password": in.Password,
	})
	if !violations.OK() {
		return User{}, apperr.Validation(violations)
	}

	user, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("login for unknown username", slog.String("username", in.Username))
			return User{}, apperr.CredentialNotFound()
		}
		return User{}, apperr.Storage(err)
	}

	if !credential.IsHashed(user.Password) {
		return s.loginLegacy(ctx, user, in.Password)
	}

	if !s.hasher.Verify(in.Password, user.Password) {
		return User{}, apperr.InvalidCredential()
	}

	return user, nil
}

// loginLegacy handles a row the startup sweep has not reached yet: compare
// the stored plaintext in constant time, then upgrade it to hashed form on
// success. A failed upgrade write is logged, not surfaced; the next sweep or
// login retries it.
func (s *Service) loginLegacy(ctx context.Context, user User, password string) (User, error) {
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return User{}, apperr.InvalidCredential()
	}

	encoded, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("hash legacy credential on login",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return user, nil
	}
	if err := s.repo.UpdateCredential(ctx, user.ID, encoded); err != nil {
		s.logger.Error("persist upgraded credential on login",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return user, nil
	}

	s.logger.Info("legacy credential upgraded on login", slog.String("user_id", user.ID))
	user.Password = encoded
	return user, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return users, nil
}
