package provider

import (
	"context"
	"errors"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/repository"
	"github.com/edugenius/edugenius-api/internal/utils"
)

// UserLookup is the slice of the credential store the local provider needs.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Local authenticates an email/password pair against the credential store.
// It also owns the wrong-provider check: a password login against an
// account registered through Google or Facebook is rejected with a message
// pointing the caller at the right login path.
type Local struct {
	Users UserLookup
}

func NewLocal(users UserLookup) *Local { return &Local{Users: users} }

func (p *Local) Authenticate(ctx context.Context, creds Credentials) (Profile, error) {
	u, err := p.Users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, apperror.New(apperror.NotFound, "Account not found!")
		}
		return Profile{}, apperror.Wrap(apperror.ServerError, "Failed to load account", err)
	}

	if u.RegisterProvider != model.ProviderLocal {
		return Profile{}, apperror.New(apperror.BadRequest, RedirectMessage(u.RegisterProvider))
	}

	if !utils.VerifyPassword(u.PasswordHash, creds.Password) {
		return Profile{}, apperror.New(apperror.BadRequest, "Password is incorrect!")
	}

	return Profile{Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}, nil
}
