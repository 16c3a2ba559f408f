package service

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"drying_oven/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// memOperators is an in-memory repository.Authorization.
type memOperators struct {
	byName    map[string]*models.Operator
	createErr error
	getErr    error
}

func (m *memOperators) Create(username, hash string) (int, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	if m.byName == nil {
		m.byName = map[string]*models.Operator{}
	}
	id := len(m.byName) + 1
	m.byName[username] = &models.Operator{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (m *memOperators) GetByUsername(username string) (*models.Operator, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byName[username], nil
}

const testSigningKey = "test-signing-key"

func newTestAuth(repo *memOperators) *AuthService {
	return NewAuthService(repo, AuthConfig{SigningKey: testSigningKey, TokenTTL: time.Hour})
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, &c).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	repo := &memOperators{}
	svc := newTestAuth(repo)

	id, err := svc.SignUp("  night-shift ", "s3cret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	op := repo.byName["night-shift"]
	if op == nil || op.ID != id {
		t.Fatalf("operator not stored under the trimmed name: %+v", repo.byName)
	}
	if op.PasswordHash == "s3cret" || bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte("s3cret")) != nil {
		t.Fatalf("password must be stored as a bcrypt hash")
	}

	token, err := svc.GenerateToken("night-shift", "s3cret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := svc.ParseToken(token)
	if err != nil || got != id {
		t.Fatalf("ParseToken = %d, %v; want %d", got, err, id)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.Issuer != tokenIssuer || claims.Subject != "night-shift" {
		t.Fatalf("unexpected claims: %+v", claims.RegisteredClaims)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != time.Hour {
		t.Fatalf("token lifetime %v, want 1h", d)
	}
}

func TestAuthService_SignUpErrors(t *testing.T) {
	storage := errors.New("UNIQUE constraint failed: operators.username")
	cases := []struct {
		name     string
		repo     *memOperators
		username string
		password string
		want     error
	}{
		{"empty username", &memOperators{}, "  ", "pw", ErrEmptyUsername},
		{"empty password", &memOperators{}, "op", " ", ErrInvalidPassword},
		{"storage", &memOperators{createErr: storage}, "op", "pw", storage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newTestAuth(tc.repo).SignUp(tc.username, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthService_GenerateTokenErrors(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	known := map[string]*models.Operator{"diana": {ID: 7, Username: "diana", PasswordHash: string(hash)}}
	storage := errors.New("database is locked")

	cases := []struct {
		name     string
		repo     *memOperators
		username string
		password string
		want     error
	}{
		{"unknown operator", &memOperators{byName: known}, "bob", "right", ErrOperatorNotFound},
		{"wrong password", &memOperators{byName: known}, "diana", "wrong", ErrInvalidPassword},
		{"storage", &memOperators{getErr: storage}, "diana", "right", storage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := newTestAuth(tc.repo).GenerateToken(tc.username, tc.password)
			if !errors.Is(err, tc.want) || token != "" {
				t.Fatalf("token=%q err=%v, want %v", token, err, tc.want)
			}
		})
	}
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(&memOperators{}, AuthConfig{SigningKey: "k"})
	if svc.ttl != defaultTokenTTL {
		t.Fatalf("expected default ttl %v, got %v", defaultTokenTTL, svc.ttl)
	}
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	now := time.Now()
	valid := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: 5,
	}
	with := func(mut func(*Claims)) Claims {
		c := valid
		mut(&c)
		return c
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	hs := jwt.SigningMethodHS256
	key := []byte(testSigningKey)

	cases := map[string]string{
		"malformed":      "not-a-jwt",
		"foreign key":    signClaims(t, hs, []byte("different-key"), valid),
		"rsa signed":     signClaims(t, jwt.SigningMethodRS256, rsaKey, valid),
		"expired":        signClaims(t, hs, key, with(func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour)) })),
		"no expiry":      signClaims(t, hs, key, with(func(c *Claims) { c.ExpiresAt = nil })),
		"other issuer":   signClaims(t, hs, key, with(func(c *Claims) { c.Issuer = "another-service" })),
		"no operator id": signClaims(t, hs, key, with(func(c *Claims) { c.OperatorID = 0 })),
	}
	svc := newTestAuth(&memOperators{})
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err=%v, want ErrInvalidToken", err)
			}
		})
	}

	if id, err := svc.ParseToken(signClaims(t, hs, key, valid)); err != nil || id != 5 {
		t.Fatalf("valid token: id=%d err=%v", id, err)
	}
}

func TestAuthService_ExpiryLeeway(t *testing.T) {
	svc := newTestAuth(&memOperators{})
	issued := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.issueToken(3, "op")
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(time.Hour + tokenLeeway/2) }
	if _, err := svc.ParseToken(token); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
	svc.now = func() time.Time { return issued.Add(time.Hour + 2*tokenLeeway) }
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}
