package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auralis/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestHMACRoundTrip(t *testing.T) {
	token, err := NewToken(secret, "user_1", "a@b.c", time.Minute)
	require.NoError(t, err)

	id, err := NewHMACVerifier(secret).ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "user_1", Email: "a@b.c"}, id)
}

func TestRejectsExpiredAndForeignTokens(t *testing.T) {
	v := NewHMACVerifier(secret)

	expired, err := NewToken(secret, "user_1", "", -time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewToken([]byte("other"), "user_1", "", time.Minute)
	require.NoError(t, err)
	_, err = v.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsMissingSubject(t *testing.T) {
	token, err := NewToken(secret, "", "", time.Minute)
	require.NoError(t, err)
	_, err = NewHMACVerifier(secret).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRSAVerifierFromConfig(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewVerifier(&config.Config{ClerkJWTKey: string(pemKey), JWTSecret: "ignored"})
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{Subject: "user_rsa", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	id, err := v.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_rsa", id.UserID)

	// HS256 token 不能冒充 RS256
	hs, err := NewToken(secret, "user_rsa", "", time.Minute)
	require.NoError(t, err)
	_, err = v.ParseToken(hs)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier(&config.Config{})
	assert.ErrorIs(t, err, ErrNoVerificationKey)

	_, err = NewVerifier(&config.Config{ClerkJWTKey: "not a pem"})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer  xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestClerkDirectoryPrimaryEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/users/user_1":
			_, _ = w.Write([]byte(`{"object":"user","id":"user_1","primary_email_address_id":"e2","email_addresses":[{"id":"e1","email_address":"old@x.io"},{"id":"e2","email_address":"admin@x.io"}]}`))
		case "/v1/users/user_2":
			_, _ = w.Write([]byte(`{"object":"user","id":"user_2","email_addresses":[{"id":"e1","email_address":"first@x.io"}]}`))
		case "/v1/users/broken":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"errors":[{"message":"upstream failed","code":"internal_clerk_error"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"message":"not found","code":"resource_not_found"}]}`))
		}
	}))
	defer srv.Close()

	dir := NewClerkDirectory(srv.URL+"/", "sk_test", srv.Client())
	ctx := context.Background()

	email, err := dir.PrimaryEmail(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "admin@x.io", email)

	email, err = dir.PrimaryEmail(ctx, "user_2")
	require.NoError(t, err)
	assert.Equal(t, "first@x.io", email)

	_, err = dir.PrimaryEmail(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = dir.PrimaryEmail(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

type mapDirectory map[string]string

func (m mapDirectory) PrimaryEmail(_ context.Context, userID string) (string, error) {
	if userID == "error" {
		return "", errors.New("directory down")
	}
	email, ok := m[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return email, nil
}

func TestAdminCheckerExactMatch(t *testing.T) {
	dir := mapDirectory{"admin": "admin@x.io", "upper": "Admin@x.io", "user": "user@x.io"}
	checker := NewAdminChecker(dir, "admin@x.io")
	ctx := context.Background()

	ok, err := checker.IsAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, id := range []string{"upper", "user", "ghost"} {
		ok, err := checker.IsAdmin(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}

	_, err = checker.IsAdmin(ctx, "error")
	assert.Error(t, err)

	email, ok, err := checker.Resolve(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "user@x.io", email)
	assert.False(t, ok)
}

func TestEmptyAdminEmailMeansNobody(t *testing.T) {
	checker := NewAdminChecker(mapDirectory{"u": ""}, "")
	ok, err := checker.IsAdmin(context.Background(), "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), &Identity{UserID: "u"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id.UserID)
}
