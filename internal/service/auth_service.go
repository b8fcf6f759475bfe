// Package service implements the session manager and user management on
// top of the credential store, the token ledger, the token codec, and the
// external collaborators (identity providers, mailer, event broker).
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/event"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/provider"
	"github.com/edugenius/edugenius-api/internal/repository"
	"github.com/edugenius/edugenius-api/internal/token"
	"github.com/edugenius/edugenius-api/internal/utils"
)

// UserStore is the slice of the credential store the session manager uses.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// Ledger tracks which token instances are currently authorized and holds
// the single-use reset codes.  See repository.TokenLedger for the Redis
// implementation; tests substitute in-memory fakes.
type Ledger interface {
	Record(ctx context.Context, email, accessToken, refreshToken, jit string) error
	Exists(ctx context.Context, email, tok, jit string) (bool, error)
	RevokeSession(ctx context.Context, email, accessToken, refreshToken, jit string) error
	RevokeSessionIfPresent(ctx context.Context, email, accessToken, refreshToken, jit string) (bool, error)
	RevokeAll(ctx context.Context, email string) error
	PutResetCode(ctx context.Context, email, code string, ttl time.Duration) error
	GetResetCode(ctx context.Context, email string) (string, bool, error)
	DeleteResetCode(ctx context.Context, email string) error
}

// ResetMailer delivers the password-reset code.
type ResetMailer interface {
	SendResetCode(name, email, code string) error
}

// EventPublisher emits auth domain events.  Publishing is fire-and-forget:
// the session manager ignores the returned error beyond what the publisher
// itself logs.
type EventPublisher interface {
	Publish(ctx context.Context, ev event.AuthEvent) error
}

// TokenPair is one active session's credentials plus its session id.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Jit          string
}

// AuthServiceDeps collects the collaborators and tuning the session
// manager needs.  Everything is injected; the service holds no process
// globals.
type AuthServiceDeps struct {
	Users     UserStore
	Ledger    Ledger
	Codec     *token.Codec
	Providers *provider.Registry
	Mailer    ResetMailer
	Events    EventPublisher
	Logger    zerolog.Logger

	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetCodeTTL time.Duration
	BcryptCost   int
}

// AuthService orchestrates registration, multi-provider login, logout,
// refresh rotation and the password reset/change flows.
type AuthService struct {
	users     UserStore
	ledger    Ledger
	codec     *token.Codec
	providers *provider.Registry
	mailer    ResetMailer
	events    EventPublisher
	logger    zerolog.Logger

	accessTTL    time.Duration
	refreshTTL   time.Duration
	resetCodeTTL time.Duration
	bcryptCost   int
}

func NewAuthService(d AuthServiceDeps) *AuthService {
	return &AuthService{
		users:        d.Users,
		ledger:       d.Ledger,
		codec:        d.Codec,
		providers:    d.Providers,
		mailer:       d.Mailer,
		events:       d.Events,
		logger:       d.Logger,
		accessTTL:    d.AccessTTL,
		refreshTTL:   d.RefreshTTL,
		resetCodeTTL: d.ResetCodeTTL,
		bcryptCost:   d.BcryptCost,
	}
}

// RegisterInput carries everything needed to create an account.  Role
// defaults to "user"; Bio and AvatarURL may be empty.  Password is ignored
// for social providers.
type RegisterInput struct {
	Email     string
	Name      string
	Password  string
	Provider  string
	Role      string
	Bio       string
	AvatarURL string
}

// Register creates a user.  Registration against an email that already
// exists fails with ALREADY_EXISTS; the message depends on the existing
// account's provider so the caller is pointed at the right login path.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if in.Email == "" || in.Name == "" {
		return model.User{}, apperror.New(apperror.BadRequest, "Email and name are required")
	}
	if !model.ValidProvider(in.Provider) {
		return model.User{}, apperror.New(apperror.BadRequest, "Invalid provider specified.")
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return model.User{}, apperror.New(apperror.AlreadyExists, duplicateMessage(existing.RegisterProvider))
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to check existing account", err)
	}

	passwordHash := ""
	if in.Provider == model.ProviderLocal {
		if in.Password == "" {
			return model.User{}, apperror.New(apperror.BadRequest, "Password is required")
		}
		passwordHash, err = utils.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to hash password", err)
		}
	}

	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return model.User{}, apperror.New(apperror.BadRequest, "Invalid role specified.")
	}

	created, err := s.users.Create(ctx, model.User{
		Email:            in.Email,
		PasswordHash:     passwordHash,
		Name:             in.Name,
		Bio:              in.Bio,
		AvatarURL:        in.AvatarURL,
		Role:             role,
		RegisterProvider: in.Provider,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Lost a race with a concurrent registration for the same email.
			return model.User{}, apperror.New(apperror.AlreadyExists, "Account already exists.")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to create account", err)
	}

	if err := s.events.Publish(ctx, event.AuthEvent{
		Type:       event.TypeUserRegistered,
		Email:      created.Email,
		Name:       created.Name,
		Provider:   created.RegisterProvider,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn().Err(err).Str("email", created.Email).Msg("publish user.registered failed")
	}

	created.PasswordHash = ""
	return created, nil
}

// LoginInput selects a provider variant and carries its credentials.
type LoginInput struct {
	Provider    string
	Credentials provider.Credentials
}

// Login authenticates through the selected provider, bootstraps an account
// on first social login, and opens a new session: a fresh jit, a signed
// access/refresh pair, and the corresponding ledger entries.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (model.User, TokenPair, error) {
	p, ok := s.providers.Lookup(in.Provider)
	if !ok {
		return model.User{}, TokenPair{}, apperror.New(apperror.BadRequest, "Invalid provider specified.")
	}

	profile, err := p.Authenticate(ctx, in.Credentials)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	if errors.Is(err, repository.ErrNotFound) && in.Provider != model.ProviderLocal {
		// First social login: bootstrap an account with an empty password.
		user, err = s.Register(ctx, RegisterInput{
			Email:     profile.Email,
			Name:      profile.Name,
			AvatarURL: profile.AvatarURL,
			Provider:  in.Provider,
		})
	}
	if err != nil {
		// The local provider has already resolved the account, so reaching
		// this with no user means a branch above is broken.
		return model.User{}, TokenPair{}, apperror.Wrap(apperror.ServerError, "Failed to authenticate user.", err)
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	user.PasswordHash = ""
	return user, pair, nil
}

// Logout revokes exactly this session's ledger entries.  Revoking an
// already-absent session is not an error, so repeated logouts are no-ops.
func (s *AuthService) Logout(ctx context.Context, email, accessToken, refreshToken, jit string) error {
	if err := s.ledger.RevokeSession(ctx, email, accessToken, refreshToken, jit); err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to revoke session", err)
	}
	return nil
}

// Refresh rotates a session whose access token has expired.  The refresh
// token must verify and its ledger entry must still be present; the old
// pair is removed and the new pair recorded under a fresh jit.  The
// remove-if-present step is conditional, so of two concurrent refreshes on
// the same stale pair only one wins; the loser fails as revoked.
func (s *AuthService) Refresh(ctx context.Context, staleAccess, refreshToken string) (*token.Claims, TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.Refresh)
	if err != nil {
		return nil, TokenPair{}, apperror.Wrap(apperror.Unauthorized, "Invalid refresh token", err)
	}

	rotated, err := s.ledger.RevokeSessionIfPresent(ctx, claims.Email, staleAccess, refreshToken, claims.Jit)
	if err != nil {
		return nil, TokenPair{}, apperror.Wrap(apperror.ServerError, "Failed to check refresh token", err)
	}
	if !rotated {
		return nil, TokenPair{}, apperror.New(apperror.Unauthorized, "Refresh token is revoked")
	}

	pair, err := s.openSession(ctx, model.User{
		Email:            claims.Email,
		Role:             claims.Role,
		RegisterProvider: claims.RegisterProvider,
	})
	if err != nil {
		return nil, TokenPair{}, err
	}

	newClaims := &token.Claims{
		Email:            claims.Email,
		Role:             claims.Role,
		RegisterProvider: claims.RegisterProvider,
		Jit:              pair.Jit,
	}
	return newClaims, pair, nil
}

// SendResetCode generates a 6-digit one-time code, emails it, and stores
// it with a TTL.  The email goes out before the store write: a stored code
// therefore implies the message was accepted by the relay, and a send
// failure leaves no state behind.
func (s *AuthService) SendResetCode(ctx context.Context, email string) error {
	if email == "" {
		return apperror.New(apperror.BadRequest, "Email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.NotFound, "Account not found!")
		}
		return apperror.Wrap(apperror.ServerError, "Failed to load account", err)
	}

	code, err := resetCode()
	if err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to generate reset code", err)
	}

	if err := s.mailer.SendResetCode(user.Name, email, code); err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to send reset code email", err)
	}

	if err := s.ledger.PutResetCode(ctx, email, code, s.resetCodeTTL); err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to store reset code", err)
	}
	return nil
}

// VerifyResetCode checks the presented code against the stored one and, on
// match, consumes it and returns a short-lived bearer reset token.  A
// missing code and a wrong code produce the same message so callers cannot
// probe which emails have pending resets.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	if email == "" {
		return "", apperror.New(apperror.BadRequest, "Email is required")
	}
	if code == "" {
		return "", apperror.New(apperror.BadRequest, "Reset code is required")
	}

	stored, found, err := s.ledger.GetResetCode(ctx, email)
	if err != nil {
		return "", apperror.Wrap(apperror.ServerError, "Failed to load reset code", err)
	}
	if !found || stored != code {
		return "", apperror.New(apperror.BadRequest, "Invalid reset code or expired")
	}

	if err := s.ledger.DeleteResetCode(ctx, email); err != nil {
		return "", apperror.Wrap(apperror.ServerError, "Failed to consume reset code", err)
	}

	resetToken, err := s.codec.Issue(token.Claims{Email: email}, token.Access, s.accessTTL)
	if err != nil {
		return "", apperror.Wrap(apperror.ServerError, "Failed to issue reset token", err)
	}
	return resetToken, nil
}

// ResetPassword verifies the bearer reset token, overwrites the password
// hash, and revokes every session for that email.  All verification
// failures collapse to one message so expiry and forgery are not
// distinguishable from outside.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if newPassword == "" {
		return apperror.New(apperror.BadRequest, "Password is required")
	}

	claims, err := s.codec.Verify(resetToken, token.Access)
	if err != nil {
		return apperror.Wrap(apperror.BadRequest, "Invalid reset token", err)
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		return apperror.Wrap(apperror.BadRequest, "Invalid reset token", err)
	}

	if err := s.overwritePassword(ctx, user.Email, newPassword); err != nil {
		return err
	}
	return nil
}

// ChangePassword verifies the caller's current password, overwrites the
// hash, and revokes every session for the email, forcing re-login on all
// devices just like ResetPassword.
func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.New(apperror.NotFound, "Account not found!")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to load account", err)
	}

	if !utils.VerifyPassword(user.PasswordHash, oldPassword) {
		return model.User{}, apperror.New(apperror.BadRequest, "Old password is incorrect!")
	}

	if err := s.overwritePassword(ctx, email, newPassword); err != nil {
		return model.User{}, err
	}

	user.PasswordHash = ""
	return user, nil
}

// openSession mints a fresh jit, signs the access/refresh pair, and records
// both in the ledger.  A ledger write failure fails the whole operation; a
// signed pair that is not in the ledger would be unusable anyway.
func (s *AuthService) openSession(ctx context.Context, u model.User) (TokenPair, error) {
	claims := token.Claims{
		Email:            u.Email,
		Role:             u.Role,
		RegisterProvider: u.RegisterProvider,
		Jit:              uuid.NewString(),
	}

	access, err := s.codec.Issue(claims, token.Access, s.accessTTL)
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.ServerError, "Failed to issue access token", err)
	}
	refresh, err := s.codec.Issue(claims, token.Refresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, apperror.Wrap(apperror.ServerError, "Failed to issue refresh token", err)
	}

	if err := s.ledger.Record(ctx, u.Email, access, refresh, claims.Jit); err != nil {
		return TokenPair{}, apperror.Wrap(apperror.ServerError, "Failed to persist session", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, Jit: claims.Jit}, nil
}

func (s *AuthService) overwritePassword(ctx context.Context, email, newPassword string) error {
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, email, hash); err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to update password", err)
	}
	if err := s.ledger.RevokeAll(ctx, email); err != nil {
		return apperror.Wrap(apperror.ServerError, "Failed to revoke sessions", err)
	}

	if err := s.events.Publish(ctx, event.AuthEvent{
		Type:       event.TypePasswordChanged,
		Email:      email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("publish password.changed failed")
	}
	return nil
}

func duplicateMessage(registerProvider string) string {
	switch registerProvider {
	case model.ProviderGoogle, model.ProviderFacebook:
		return provider.RedirectMessage(registerProvider)
	default:
		return "Account already exists."
	}
}

// resetCode draws a uniform 6-digit code in [100000, 999999].
func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
