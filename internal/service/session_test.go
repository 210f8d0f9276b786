package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vowsuite/vowsuite-api/internal/model"
	"github.com/vowsuite/vowsuite-api/internal/repository"
	"github.com/vowsuite/vowsuite-api/internal/utils"
)

// stubStore backs all store interfaces with in-memory maps. RunTx snapshots
// state before the callback and restores it on error, mirroring a rollback.
type stubStore struct {
	mu         sync.Mutex
	users      map[uint64]model.User
	byEmail    map[string]uint64
	businesses map[uint64]model.Business
	tokens     map[string]model.RefreshToken
	nextUser   uint64
	nextBiz    uint64

	failUserInsert bool
}

func newStubStore() *stubStore {
	return &stubStore{
		users:      make(map[uint64]model.User),
		byEmail:    make(map[string]uint64),
		businesses: make(map[uint64]model.Business),
		tokens:     make(map[string]model.RefreshToken),
	}
}

func (s *stubStore) CreateTx(_ context.Context, _ *sql.Tx, email, hash, role string, businessID *uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUserInsert {
		return 0, errors.New("insert failed")
	}
	if _, ok := s.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	s.nextUser++
	now := time.Now().UTC()
	u := model.User{
		ID:           s.nextUser,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		BusinessID:   businessID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u.ID, nil
}

func (s *stubStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return s.users[id], nil
}

func (s *stubStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type stubBusinessStore struct{ s *stubStore }

func (b stubBusinessStore) CreateTx(_ context.Context, _ *sql.Tx, name, slug string) (uint64, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.s.nextBiz++
	b.s.businesses[b.s.nextBiz] = model.Business{ID: b.s.nextBiz, Name: name, Slug: slug}
	return b.s.nextBiz, nil
}

type stubTokenStore struct{ s *stubStore }

func (t stubTokenStore) Create(_ context.Context, id string, userID uint64, tokenHash string, exp time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tokens[id] = model.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (t stubTokenStore) GetByID(_ context.Context, id string) (model.RefreshToken, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec, ok := t.s.tokens[id]
	if !ok {
		return model.RefreshToken{}, sql.ErrNoRows
	}
	return rec, nil
}

func (t stubTokenStore) Revoke(_ context.Context, id string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec, ok := t.s.tokens[id]
	if !ok || rec.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	rec.RevokedAt = &now
	t.s.tokens[id] = rec
	return true, nil
}

type stubTxRunner struct{ s *stubStore }

func (r stubTxRunner) RunTx(_ context.Context, fn func(*sql.Tx) error) error {
	r.s.mu.Lock()
	users := make(map[uint64]model.User, len(r.s.users))
	for k, v := range r.s.users {
		users[k] = v
	}
	byEmail := make(map[string]uint64, len(r.s.byEmail))
	for k, v := range r.s.byEmail {
		byEmail[k] = v
	}
	businesses := make(map[uint64]model.Business, len(r.s.businesses))
	for k, v := range r.s.businesses {
		businesses[k] = v
	}
	nextUser, nextBiz := r.s.nextUser, r.s.nextBiz
	r.s.mu.Unlock()

	if err := fn(nil); err != nil {
		r.s.mu.Lock()
		r.s.users = users
		r.s.byEmail = byEmail
		r.s.businesses = businesses
		r.s.nextUser, r.s.nextBiz = nextUser, nextBiz
		r.s.mu.Unlock()
		return err
	}
	return nil
}

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

func newTestService(s *stubStore) *SessionService {
	return NewSessionService(
		s,
		stubBusinessStore{s},
		stubTokenStore{s},
		stubTxRunner{s},
		nil,
		Options{
			AccessSecret:   testAccessSecret,
			RefreshSecret:  testRefreshSecret,
			AccessTTLMin:   15,
			RefreshTTLDays: 7,
			BcryptCost:     bcrypt.MinCost,
		},
	)
}

func register(t *testing.T, svc *SessionService, email, role, businessName string) Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), RegisterInput{
		Email:        email,
		Password:     "password123",
		Role:         role,
		BusinessName: businessName,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return sess
}

// refreshTokenID decodes the record id claim out of a signed refresh token.
func refreshTokenID(t *testing.T, raw string) string {
	t.Helper()
	claims, err := utils.ParseRefreshToken(testRefreshSecret, raw)
	if err != nil {
		t.Fatalf("refresh token did not parse: %v", err)
	}
	return claims.TokenID
}

func TestRegister_ClientHasNoBusiness(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	sess := register(t, svc, "a@x.com", model.RoleClient, "")

	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", sess)
	}
	if sess.User.BusinessID != nil {
		t.Fatalf("CLIENT user should have nil businessId, got %v", *sess.User.BusinessID)
	}
	if len(s.businesses) != 0 {
		t.Fatalf("expected no business records, got %d", len(s.businesses))
	}
	if len(s.tokens) != 1 {
		t.Fatalf("expected one refresh token record, got %d", len(s.tokens))
	}
}

func TestRegister_AdminCreatesBusinessAtomically(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	sess := register(t, svc, "owner@venue.com", model.RoleAdmin, "Rosewood Events")

	if len(s.businesses) != 1 || len(s.users) != 1 {
		t.Fatalf("expected exactly one business and one user, got %d/%d", len(s.businesses), len(s.users))
	}
	if sess.User.BusinessID == nil {
		t.Fatal("ADMIN user should reference the created business")
	}
	for _, b := range s.businesses {
		if !strings.HasPrefix(b.Slug, "rosewood-events-") {
			t.Fatalf("unexpected slug: %q", b.Slug)
		}
	}
}

func TestRegister_AdminRequiresBusinessName(t *testing.T) {
	svc := newTestService(newStubStore())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:        "owner@venue.com",
		Password:     "password123",
		Role:         model.RoleAdmin,
		BusinessName: "   ",
	})
	if !errors.Is(err, ErrBusinessRequired) {
		t.Fatalf("expected ErrBusinessRequired, got %v", err)
	}
}

func TestRegister_RollsBackBusinessOnUserFailure(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)
	s.failUserInsert = true

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:        "owner@venue.com",
		Password:     "password123",
		Role:         model.RoleAdmin,
		BusinessName: "Rosewood Events",
	})
	if err == nil {
		t.Fatal("expected error when user insert fails")
	}
	if len(s.businesses) != 0 {
		t.Fatalf("business must not survive a failed registration, got %d", len(s.businesses))
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	register(t, svc, "A@X.com", model.RoleClient, "")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@x.com",
		Password: "password123",
		Role:     model.RoleClient,
	})
	if !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
	if len(s.users) != 1 {
		t.Fatalf("second attempt must not create a user, got %d", len(s.users))
	}
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	svc := newTestService(newStubStore())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@x.com",
		Password: "password123",
		Role:     "SUPERUSER",
	})
	if err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestLogin_IssuesFreshRefreshToken(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	first := register(t, svc, "a@x.com", model.RoleClient, "")

	sess, err := svc.Login(context.Background(), "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if sess.RefreshToken == first.RefreshToken {
		t.Fatal("login must issue a refresh token distinct from any prior session")
	}
	if len(s.tokens) != 2 {
		t.Fatalf("expected two refresh token records, got %d", len(s.tokens))
	}
}

func TestLogin_IdenticalErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	svc := newTestService(newStubStore())
	register(t, svc, "a@x.com", model.RoleClient, "")

	_, errWrongPass := svc.Login(context.Background(), "a@x.com", "not-the-password")
	_, errNoUser := svc.Login(context.Background(), "ghost@x.com", "password123")

	if !errors.Is(errWrongPass, ErrInvalidCredentials) || !errors.Is(errNoUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errWrongPass, errNoUser)
	}
	if errWrongPass.Error() != errNoUser.Error() {
		t.Fatal("the two login failures must be indistinguishable")
	}
}

func TestRefresh_RotationOnUse(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)
	userID := sess.User.ID

	next, err := svc.Refresh(context.Background(), userID, tokenID, sess.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}

	if _, err := svc.Refresh(context.Background(), userID, tokenID, sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reused refresh token must fail with ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_ExpiredRecord(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	rec := s.tokens[tokenID]
	rec.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	s.tokens[tokenID] = rec

	// Signature and hash are still valid; the stored expiry alone decides.
	if _, err := svc.Refresh(context.Background(), sess.User.ID, tokenID, sess.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_ForeignUser(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	if _, err := svc.Refresh(context.Background(), sess.User.ID+1, tokenID, sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_HashMismatch(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	if _, err := svc.Refresh(context.Background(), sess.User.ID, tokenID, sess.RefreshToken+"tampered"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_MissingRecord(t *testing.T) {
	svc := newTestService(newStubStore())
	sess := register(t, svc, "a@x.com", model.RoleClient, "")

	if _, err := svc.Refresh(context.Background(), sess.User.ID, "no-such-record", sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	if err := svc.Logout(context.Background(), sess.User.ID, tokenID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), sess.User.ID, tokenID, sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout must fail with ErrInvalidRefreshToken, got %v", err)
	}
	// Logging out an already revoked token is observationally a no-op.
	if err := svc.Logout(context.Background(), sess.User.ID, tokenID); err != nil {
		t.Fatalf("repeated logout must succeed, got %v", err)
	}
}

func TestLogout_ForeignTokenNotFound(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	if err := svc.Logout(context.Background(), sess.User.ID+1, tokenID); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if err := svc.Logout(context.Background(), sess.User.ID, "no-such-record"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")
	tokenID := refreshTokenID(t, sess.RefreshToken)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Refresh(context.Background(), sess.User.ID, tokenID, sess.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidRefreshToken):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one loser, got %d/%d", wins, losses)
	}
}

func TestMe(t *testing.T) {
	svc := newTestService(newStubStore())

	sess := register(t, svc, "a@x.com", model.RoleClient, "")

	me, err := svc.Me(context.Background(), sess.User.ID)
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if me.Email != "a@x.com" || me.Role != model.RoleClient {
		t.Fatalf("unexpected projection: %+v", me)
	}

	if _, err := svc.Me(context.Background(), 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	s := newStubStore()
	svc := newTestService(s)

	sess := register(t, svc, "  Planner@Weddings.COM ", model.RoleClient, "")
	if sess.User.Email != "planner@weddings.com" {
		t.Fatalf("email not normalized: %q", sess.User.Email)
	}
}
