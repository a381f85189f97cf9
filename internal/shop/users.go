package shop

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

const minPasswordLength = 8

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)

	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Name == "" {
		return database.InvalidInput("name is required")
	}
	return validatePassword(r.Password)
}

type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (r UpdateUserRequest) Validate() error {
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return database.InvalidInput("name must not be empty")
	}
	if r.Password != nil {
		return validatePassword(*r.Password)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken string `json:"access_token"`
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return database.InvalidInput("invalid email %q", email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return database.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, s.db, req.Email, req.Name, hash)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user created", slog.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListUsers(ctx, s.db, page, pageSize)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return store.GetUser(ctx, s.db, id)
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	upd := store.UserUpdate{Email: req.Email}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		upd.Name = &name
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	return store.UpdateUser(ctx, s.db, id, upd)
}

// RemoveUser deletes the user together with their cart items and orders.
func (s *Service) RemoveUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := store.DeleteUser(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user deleted", slog.String("user_id", id.String()))
	return user, nil
}

// Login checks the credentials and issues a bearer token. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Token, error) {
	if s.issuer == nil {
		return nil, errors.New("login: token issuer not configured")
	}

	user, err := store.GetUserByEmail(ctx, s.db, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, database.ErrBadCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, database.ErrBadCredentials
	}

	token, err := s.issuer.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: token}, nil
}
