package domain

import (
	"context"
	"time"
)

// User is an account in the local identity store: enough to authenticate,
// resolve invitees by email, and address notifications.
// swagger:model User
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
}

// DisplayName returns a human-readable name, falling back to the email.
func (u *User) DisplayName() string {
	name := u.Name
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// UserRepository defines storage operations for user accounts. Email lookup is
// case-insensitive; emails are unique.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*User, error)
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier validates a bearer token and returns the acting user id.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name, lastName string) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
}
