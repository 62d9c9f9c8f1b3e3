package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/queue"
	"github.com/iliyamo/listing-platform/internal/repository"
	"github.com/iliyamo/listing-platform/internal/utils"
)

const authModule = "auth"

// Client-facing messages.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid token"
	msgInactiveAccount    = "User inactive or deleted"
	msgPasswordMismatch   = "Passwords don't match"
	msgUsernameTaken      = "A user with that username already exists"
	msgEmailTaken         = "A user with that email already exists"
)

// dummyHash is compared against when the username is unknown, so a failed
// login costs the same bcrypt work either way.
var dummyHash, _ = utils.HashPassword("dummy-password-for-timing", 10)

// RegisterInput is the register payload.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries optional profile fields; nil means unchanged.
type UpdateProfileInput struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// AuthService implements register, login, logout, profile and verify over
// the account directory and token store.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     repository.TokenRepository
	bcryptCost int
	validate   *Validator
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthService(accounts repository.AccountRepository, tokens repository.TokenRepository, bcryptCost int, events EventPublisher, logger *slog.Logger) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		validate:   NewValidator(),
		events:     events,
		logger:     logging.Resolve(logger),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and issues its first token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.Account, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Validate(in); err != nil {
		return model.Account{}, "", err
	}
	if in.Password != in.PasswordConfirm {
		return model.Account{}, "", apperror.Validation(msgPasswordMismatch)
	}
	if _, err := s.accounts.GetByUsername(ctx, in.Username); err == nil {
		return model.Account{}, "", apperror.Validation(msgUsernameTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, "", apperror.Internal(err)
	}
	if _, err := s.accounts.GetByEmail(ctx, in.Email); err == nil {
		return model.Account{}, "", apperror.Validation(msgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, "", apperror.Internal(err)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.Account{}, "", apperror.Internal(fmt.Errorf("hash password: %w", err))
	}
	acct := model.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		DateJoined:   s.now(),
	}
	if err := s.accounts.Create(ctx, &acct); err != nil {
		return model.Account{}, "", mapAccountErr(err)
	}
	token, err := s.issueToken(ctx, acct.ID)
	if err != nil {
		return model.Account{}, "", err
	}

	s.logger.Info("account registered",
		"event", "account_registered",
		"module", authModule,
		"layer", "application",
		"account_id", acct.ID,
	)
	publish(ctx, s.events, s.logger, authModule, queue.Event{
		Type:       queue.AccountRegistered,
		AccountID:  acct.ID,
		Actor:      acct.Username,
		OccurredAt: s.now(),
	})
	return acct, token, nil
}

// Login checks credentials and issues a token, replacing any previous one.
// Unknown usernames, wrong passwords and inactive accounts fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (model.Account, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Validate(in); err != nil {
		return model.Account{}, "", err
	}
	acct, err := s.accounts.GetByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, "", apperror.Internal(err)
		}
		utils.VerifyPassword(dummyHash, in.Password)
		return model.Account{}, "", apperror.Validation(msgInvalidCredentials)
	}
	if !utils.VerifyPassword(acct.PasswordHash, in.Password) || !acct.IsActive {
		s.logger.Info("login rejected",
			"event", "login_rejected",
			"module", authModule,
			"layer", "application",
			"account_id", acct.ID,
		)
		return model.Account{}, "", apperror.Validation(msgInvalidCredentials)
	}
	token, err := s.issueToken(ctx, acct.ID)
	if err != nil {
		return model.Account{}, "", err
	}
	return acct, token, nil
}

// Authenticate resolves a raw token to its active account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.Account, error) {
	id, err := s.tokens.AccountID(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, apperror.Unauthenticated(msgInvalidToken)
		}
		return model.Account{}, apperror.Internal(err)
	}
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, apperror.Unauthenticated(msgInvalidToken)
		}
		return model.Account{}, apperror.Internal(err)
	}
	if !acct.IsActive {
		return model.Account{}, apperror.Unauthenticated(msgInactiveAccount)
	}
	return acct, nil
}

// Logout destroys token. The token never verifies again.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	acct, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, utils.HashToken(token)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.Unauthenticated(msgInvalidToken)
		}
		return apperror.Internal(err)
	}
	s.logger.Info("account logged out",
		"event", "account_logged_out",
		"module", authModule,
		"layer", "application",
		"account_id", acct.ID,
	)
	return nil
}

// Profile returns the account owning token.
func (s *AuthService) Profile(ctx context.Context, token string) (model.Account, error) {
	return s.Authenticate(ctx, token)
}

// UpdateProfile applies only the supplied fields.
func (s *AuthService) UpdateProfile(ctx context.Context, token string, in UpdateProfileInput) (model.Account, error) {
	acct, err := s.Authenticate(ctx, token)
	if err != nil {
		return model.Account{}, err
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
	}
	if err := s.validate.Validate(in); err != nil {
		return model.Account{}, err
	}
	upd := model.ProfileUpdate{Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}
	if upd.Empty() {
		return acct, nil
	}
	if upd.Email != nil && *upd.Email == "" {
		return model.Account{}, apperror.Validation("email: this field may not be blank")
	}
	if upd.Email != nil && !strings.EqualFold(*upd.Email, acct.Email) {
		other, err := s.accounts.GetByEmail(ctx, *upd.Email)
		if err == nil && other.ID != acct.ID {
			return model.Account{}, apperror.Validation(msgEmailTaken)
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, apperror.Internal(err)
		}
	}
	updated, err := s.accounts.UpdateProfile(ctx, acct.ID, upd)
	if err != nil {
		return model.Account{}, mapAccountErr(err)
	}
	return updated, nil
}

// Verify reports whether token is valid. Unknown tokens are a normal
// answer, not an error.
func (s *AuthService) Verify(ctx context.Context, token string) (model.VerifyResult, error) {
	acct, err := s.Authenticate(ctx, token)
	if err != nil {
		if ae, ok := apperror.As(err); ok && ae.Kind == apperror.KindUnauthenticated {
			return model.VerifyResult{Valid: false, Error: ae.Message}, nil
		}
		return model.VerifyResult{}, err
	}
	p := acct.Principal()
	return model.VerifyResult{Valid: true, User: &p}, nil
}

func (s *AuthService) issueToken(ctx context.Context, accountID int64) (string, error) {
	raw, err := utils.NewToken()
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("generate token: %w", err))
	}
	if err := s.tokens.Replace(ctx, accountID, utils.HashToken(raw), s.now()); err != nil {
		return "", apperror.Internal(fmt.Errorf("store token: %w", err))
	}
	return raw, nil
}

func mapAccountErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return apperror.Validation(msgUsernameTaken)
	case errors.Is(err, repository.ErrEmailTaken):
		return apperror.Validation(msgEmailTaken)
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Unauthenticated(msgInvalidToken)
	default:
		return apperror.Internal(err)
	}
}
