package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"spaceshop-server/internal/shared/errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users  map[string]*User
	hashes map[string]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  map[string]*User{},
		hashes: map[string]string{},
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.New(), Email: email, Confirmed: true, CreatedAt: time.Now()}
	f.users[strings.ToLower(email)] = u
	f.hashes[strings.ToLower(email)] = passwordHash
	return u, nil
}

func (f *fakeUserStore) InviteUser(ctx context.Context, email string) (*User, error) {
	now := time.Now()
	u := &User{ID: uuid.New(), Email: email, InvitedAt: &now, CreatedAt: now}
	f.users[strings.ToLower(email)] = u
	return u, nil
}

func (f *fakeUserStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := f.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, nil
}

func (f *fakeUserStore) GetCredentialsByEmail(ctx context.Context, email string) (*User, string, error) {
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, "", nil
	}
	return u, f.hashes[strings.ToLower(email)], nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(store UserStore, serviceKey string) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, testSecret, time.Hour, serviceKey, logger)
}

func TestSignUpAndSignIn(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store, "")

	user, err := service.SignUp(context.Background(), "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if hash := store.hashes["alice@example.com"]; hash == "hunter22" || hash == "" {
		t.Fatal("expected the password to be stored hashed")
	}

	session, err := service.SignIn(context.Background(), "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if session.User.ID != user.ID {
		t.Fatal("expected the session to carry the signed-in user")
	}

	resolved, err := service.GetUserFromToken(context.Background(), session.AccessToken)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatal("expected token to resolve to the same user")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	if _, err := service.SignUp(context.Background(), "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	_, err := service.SignUp(context.Background(), "alice@example.com", "hunter23")
	if errors.GetType(err) != errors.ErrorTypeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "hunter22"},
		{"bogus email", "not-an-email", "hunter22"},
		{"short password", "alice@example.com", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.SignUp(context.Background(), tt.email, tt.password)
			if errors.GetType(err) != errors.ErrorTypeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSignInWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store, "")

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), "alice@example.com", string(hash)); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err = service.SignIn(context.Background(), "alice@example.com", "wrong")
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignInUnknownUser(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	_, err := service.SignIn(context.Background(), "nobody@example.com", "whatever")
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignInInvitedUserHasNoPassword(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store, "key")

	if _, err := store.InviteUser(context.Background(), "invited@example.com"); err != nil {
		t.Fatalf("seed invite: %v", err)
	}

	_, err := service.SignIn(context.Background(), "invited@example.com", "anything")
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized for invited account, got %v", err)
	}
}

func TestGetUserFromTokenRejectsGarbage(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	_, err := service.GetUserFromToken(context.Background(), "not-a-token")
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestGetUserFromTokenRejectsDeletedAccount(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	ghost := &User{ID: uuid.New(), Email: "ghost@example.com"}
	token, _, err := GenerateJWT(testSecret, ghost, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = service.GetUserFromToken(context.Background(), token)
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized for a token without a live account, got %v", err)
	}
}

func TestGiftAvailableTracksServiceKey(t *testing.T) {
	if newTestService(newFakeUserStore(), "").GiftAvailable() {
		t.Fatal("expected gifting unavailable without the service credential")
	}
	if !newTestService(newFakeUserStore(), "service-key").GiftAvailable() {
		t.Fatal("expected gifting available with the service credential")
	}
}

func TestInviteRequiresServiceKey(t *testing.T) {
	service := newTestService(newFakeUserStore(), "")

	_, err := service.InviteUserByEmail(context.Background(), "new@example.com")
	if errors.GetType(err) != errors.ErrorTypeUnavailable {
		t.Fatalf("expected unavailable without service credential, got %v", err)
	}
}

func TestInviteProvisionsAccount(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store, "service-key")

	user, err := service.InviteUserByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if user.InvitedAt == nil {
		t.Fatal("expected invited_at to be set")
	}
	if user.Confirmed {
		t.Fatal("expected invited account to be unconfirmed")
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	user := &User{ID: uuid.New(), Email: "alice@example.com"}
	token, _, err := GenerateJWT(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateJWT("another-secret-another-secret-32", token); err == nil {
		t.Fatal("expected validation to fail with the wrong secret")
	}
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	user := &User{ID: uuid.New(), Email: "alice@example.com"}
	token, _, err := GenerateJWT(testSecret, user, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateJWT(testSecret, token); err == nil {
		t.Fatal("expected validation to fail for an expired token")
	}
}

func TestClaimsRoundTrip(t *testing.T) {
	user := &User{ID: uuid.New(), Email: "alice@example.com"}
	token, expiresAt, err := GenerateJWT(testSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected a future expiry")
	}

	claims, err := ValidateJWT(testSecret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	rebuilt, err := claims.User()
	if err != nil {
		t.Fatalf("rebuild user: %v", err)
	}
	if rebuilt.ID != user.ID || rebuilt.Email != user.Email {
		t.Fatal("expected claims to round-trip the identity")
	}
}
