package service

import (
	"context"
	"errors"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/repository"
	"github.com/edugenius/edugenius-api/internal/utils"
)

// UserDirectory is the slice of the credential store user management uses.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, email, name, bio, avatarURL string) (model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserService covers profile access and the admin-only user management
// operations.  Account creation stays with AuthService.Register so the
// duplicate-email rules live in one place.
type UserService struct {
	users      UserDirectory
	bcryptCost int
}

func NewUserService(users UserDirectory, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// Me returns the caller's own record.
func (s *UserService) Me(ctx context.Context, email string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.New(apperror.NotFound, "User not found!")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to load user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// UpdateProfile updates the caller's own name, bio and avatar.
func (s *UserService) UpdateProfile(ctx context.Context, email, name, bio, avatarURL string) (model.User, error) {
	if name == "" {
		return model.User{}, apperror.New(apperror.BadRequest, "Name is required")
	}
	u, err := s.users.UpdateProfile(ctx, email, name, bio, avatarURL)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.New(apperror.NotFound, "User not found!")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to update profile", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// ListUsers returns all users, newest first.  Admin only by routing.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.ServerError, "Failed to list users", err)
	}
	return users, nil
}

// GetUser returns one user by id.  Admin only by routing.
func (s *UserService) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.New(apperror.NotFound, "User not found!")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to load user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// AdminUpdateInput carries the administratively editable fields.  An empty
// Password leaves the stored hash untouched; a non-empty one replaces it.
type AdminUpdateInput struct {
	Name      string
	Bio       string
	AvatarURL string
	Role      string
	Password  string
}

// UpdateUser overwrites a user's administrative fields.  Admin only by
// routing.
func (s *UserService) UpdateUser(ctx context.Context, id uint64, in AdminUpdateInput) (model.User, error) {
	if in.Name == "" {
		return model.User{}, apperror.New(apperror.BadRequest, "Name is required")
	}
	if !model.ValidRole(in.Role) {
		return model.User{}, apperror.New(apperror.BadRequest, "Invalid role specified.")
	}

	passwordHash := ""
	if in.Password != "" {
		var err error
		passwordHash, err = utils.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to hash password", err)
		}
	}

	u, err := s.users.Update(ctx, model.User{
		ID:           id,
		Name:         in.Name,
		Bio:          in.Bio,
		AvatarURL:    in.AvatarURL,
		Role:         in.Role,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.New(apperror.NotFound, "User not found!")
		}
		return model.User{}, apperror.Wrap(apperror.ServerError, "Failed to update user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// DeleteUser removes a user record.  Admin only by routing; hard delete.
func (s *UserService) DeleteUser(ctx context.Context, id uint64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.NotFound, "User not found!")
		}
		return apperror.Wrap(apperror.ServerError, "Failed to delete user", err)
	}
	return nil
}
