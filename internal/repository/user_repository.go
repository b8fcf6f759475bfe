package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/edugenius/edugenius-api/internal/model"
)

const userColumns = "id,email,password_hash,name,bio,avatar_url,role,register_provider,created_at,updated_at"

// UserRepo is the credential store: the durable record of users backed by
// the `users` table.  Email uniqueness is enforced by a unique index at the
// storage layer; the repository surfaces violations as ErrEmailExists.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns the stored record.  The password hash
// is computed by the caller; social accounts store an empty hash.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, bio, avatar_url, role, register_provider) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, u.Bio, u.AvatarURL, u.Role, u.RegisterProvider)
	if err != nil {
		// MySQL error 1062: duplicate entry for the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by email, password hash included.  Callers that
// return the record to clients rely on the model's json tags to keep the
// hash out of responses.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio,
			&u.AvatarURL, &u.Role, &u.RegisterProvider, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdatePassword overwrites the stored password hash for an email.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE email=?", passwordHash, email)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateProfile updates the user-editable profile columns and returns the
// fresh record.
func (r *UserRepo) UpdateProfile(ctx context.Context, email, name, bio, avatarURL string) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, bio=?, avatar_url=? WHERE email=?",
		name, bio, avatarURL, email)
	if err != nil {
		return model.User{}, err
	}
	if err := requireRow(res); err != nil {
		return model.User{}, err
	}
	return r.GetByEmail(ctx, email)
}

// Update overwrites the administrative columns of an existing user.  An
// empty PasswordHash leaves the stored hash untouched so that admin edits
// do not silently lock accounts out.
func (r *UserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	var (
		res sql.Result
		err error
	)
	if u.PasswordHash != "" {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET name=?, bio=?, avatar_url=?, role=?, password_hash=? WHERE id=?",
			u.Name, u.Bio, u.AvatarURL, u.Role, u.PasswordHash, u.ID)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET name=?, bio=?, avatar_url=?, role=? WHERE id=?",
			u.Name, u.Bio, u.AvatarURL, u.Role, u.ID)
	}
	if err != nil {
		return model.User{}, err
	}
	if err := requireRow(res); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, u.ID)
}

// Delete removes a user row.  Deleting an absent row is ErrNotFound.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio,
		&u.AvatarURL, &u.Role, &u.RegisterProvider, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
