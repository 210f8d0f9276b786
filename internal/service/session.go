// Package service implements the session lifecycle: registration, login,
// refresh-token rotation, logout and identity lookup.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vowsuite/vowsuite-api/internal/model"
	"github.com/vowsuite/vowsuite-api/internal/repository"
	"github.com/vowsuite/vowsuite-api/internal/utils"
)

// UserStore is the slice of the credential store the session service needs
// for user records.
type UserStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash, role string, businessID *uint64) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BusinessStore creates tenant records during ADMIN registration.
type BusinessStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, name, slug string) (uint64, error)
}

// TokenStore tracks refresh-token records.
type TokenStore interface {
	Create(ctx context.Context, id string, userID uint64, tokenHash string, exp time.Time) error
	GetByID(ctx context.Context, id string) (model.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
}

// TxRunner executes a function atomically against the store.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(*sql.Tx) error) error
}

// EventPublisher emits auth lifecycle events. Implementations must not
// block the request path; failures are logged, never surfaced.
type EventPublisher interface {
	UserRegistered(userID uint64, email, role string)
	SessionRevoked(userID uint64, tokenID, reason string)
}

// Options carries the token signing configuration.
type Options struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// UserSummary is the projection of a user returned with every session.
type UserSummary struct {
	ID         uint64  `json:"id"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	BusinessID *uint64 `json:"businessId"`
}

// Session is the result of a successful issuance: a stateless access token
// and a stateful, single-use refresh token.
type Session struct {
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
	User           UserSummary
}

// MeView is the profile projection returned by Me.
type MeView struct {
	ID         uint64    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	BusinessID *uint64   `json:"businessId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Email        string
	Password     string
	Role         string
	BusinessName string
}

// SessionService orchestrates the authentication lifecycle against the
// credential store. It holds no mutable state; every invocation runs to
// completion against the store.
type SessionService struct {
	users      UserStore
	businesses BusinessStore
	tokens     TokenStore
	tx         TxRunner
	events     EventPublisher
	opts       Options
}

func NewSessionService(users UserStore, businesses BusinessStore, tokens TokenStore, tx TxRunner, events EventPublisher, opts Options) *SessionService {
	return &SessionService{users: users, businesses: businesses, tokens: tokens, tx: tx, events: events, opts: opts}
}

// Register creates a user (and, for ADMIN, its business in the same
// transaction) and returns a freshly issued session.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !model.ValidRole(in.Role) {
		return Session{}, ErrInvalidCredentials
	}
	businessName := strings.TrimSpace(in.BusinessName)
	if in.Role == model.RoleAdmin && businessName == "" {
		return Session{}, ErrBusinessRequired
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailInUse
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Session{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return Session{}, err
	}

	var userID uint64
	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		var businessID *uint64
		if in.Role == model.RoleAdmin {
			bid, err := s.businesses.CreateTx(ctx, tx, businessName, utils.UniqueSlug(businessName))
			if err != nil {
				return err
			}
			businessID = &bid
		}
		uid, err := s.users.CreateTx(ctx, tx, email, hash, in.Role, businessID)
		if err != nil {
			return err
		}
		userID = uid
		return nil
	})
	if err != nil {
		// The unique index backs the pre-check under concurrent registration.
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrEmailInUse
		}
		return Session{}, err
	}

	sess, err := s.issueSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if s.events != nil {
		s.events.UserRegistered(userID, email, in.Role)
	}
	return sess, nil
}

// Login verifies credentials and returns a freshly issued session. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issueSession(ctx, u.ID)
}

// Refresh redeems a refresh token: the matched record is revoked before the
// new session is issued, so each token is single-use even when two callers
// race on the same record.
func (s *SessionService) Refresh(ctx context.Context, userID uint64, tokenID, raw string) (Session, error) {
	rec, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}
	if rec.UserID != userID || rec.RevokedAt != nil {
		return Session{}, ErrInvalidRefreshToken
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		return Session{}, ErrRefreshTokenExpired
	}
	if utils.HashRefreshRaw(raw) != rec.TokenHash {
		return Session{}, ErrInvalidRefreshToken
	}

	revoked, err := s.tokens.Revoke(ctx, tokenID)
	if err != nil {
		return Session{}, err
	}
	if !revoked {
		// Lost the race against a concurrent refresh or a logout.
		return Session{}, ErrInvalidRefreshToken
	}
	if s.events != nil {
		s.events.SessionRevoked(userID, tokenID, "rotated")
	}
	return s.issueSession(ctx, userID)
}

// Logout revokes the given refresh-token record. Revoking an already
// revoked record is observationally a no-op.
func (s *SessionService) Logout(ctx context.Context, userID uint64, tokenID string) error {
	rec, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	if rec.UserID != userID {
		return ErrTokenNotFound
	}
	if _, err := s.tokens.Revoke(ctx, tokenID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.SessionRevoked(userID, tokenID, "logout")
	}
	return nil
}

// Me projects the current user record for display.
func (s *SessionService) Me(ctx context.Context, userID uint64) (MeView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MeView{}, ErrUserNotFound
		}
		return MeView{}, err
	}
	return MeView{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		BusinessID: u.BusinessID,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}, nil
}

// issueSession signs a new access/refresh pair and persists the refresh
// record. Used by Register, Login and Refresh.
func (s *SessionService) issueSession(ctx context.Context, userID uint64) (Session, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, err
	}

	access, err := utils.NewAccessToken(s.opts.AccessSecret, u, s.opts.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}

	tokenID := uuid.NewString()
	refresh, err := utils.NewRefreshToken(s.opts.RefreshSecret, u.ID, tokenID, s.opts.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.Create(ctx, tokenID, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:    access.Token,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
		User: UserSummary{
			ID:         u.ID,
			Email:      u.Email,
			Role:       u.Role,
			BusinessID: u.BusinessID,
		},
	}, nil
}
