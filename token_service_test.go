package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-tracker-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Roles() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func newIdentity(id string) *MockIdentity {
	identity := &MockIdentity{}
	identity.On("ID").Return(id)
	identity.On("Username").Return("alice").Maybe()
	identity.On("Roles").Return([]string{auth.RoleAdmin}).Maybe()
	return identity
}

func TestNewTokenService(t *testing.T) {
	signingKey := []byte(testSigningKey)
	audience := jwt.ClaimStrings{"test-audience"}

	t.Run("creates token service with logger", func(t *testing.T) {
		service := auth.NewTokenService(signingKey, time.Hour, "test-issuer", audience, auth.WithTokenLogger(auth.NopLogger()))
		assert.NotNil(t, service)
		assert.Equal(t, time.Hour, service.TTL())
	})

	t.Run("non positive ttl falls back to default", func(t *testing.T) {
		service := auth.NewTokenService(signingKey, 0, "test-issuer", audience)
		assert.Equal(t, auth.DefaultAccessTokenTTL, service.TTL())
	})

	t.Run("from config", func(t *testing.T) {
		service := auth.NewTokenServiceFromConfig(testOptions())
		assert.Equal(t, auth.DefaultAccessTokenTTL, service.TTL())
	})
}

func TestTokenService_Issue(t *testing.T) {
	signingKey := []byte(testSigningKey)
	audience := jwt.ClaimStrings{"test-audience"}
	clock := newTestClock()
	service := auth.NewTokenService(signingKey, time.Hour, "test-issuer", audience, auth.WithTokenClock(clock.Now))

	t.Run("generates valid JWT token", func(t *testing.T) {
		id := uuid.NewString()
		identity := newIdentity(id)

		tokenString, err := service.Issue(identity)
		require.NoError(t, err)
		assert.NotEmpty(t, tokenString)

		claims := &auth.JWTClaims{}
		_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithTimeFunc(clock.Now))
		require.NoError(t, err)

		assert.Equal(t, id, claims.Subject())
		assert.Equal(t, id, claims.UserID())
		assert.Equal(t, "alice", claims.Username())
		assert.Equal(t, []string{auth.RoleAdmin}, claims.Roles())
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.Equal(t, audience, claims.Audience)
		assert.NotEmpty(t, claims.ID)
		assert.WithinDuration(t, clock.Now(), claims.IssuedAt(), 0)
		assert.WithinDuration(t, clock.Now().Add(time.Hour), claims.Expires(), 0)

		identity.AssertExpectations(t)
	})

	t.Run("requires an identity", func(t *testing.T) {
		_, err := service.Issue(nil)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidInput))

		_, err = service.Issue(newIdentity(""))
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidInput))
	})

	t.Run("each token has its own id", func(t *testing.T) {
		a, err := service.Issue(newIdentity("user-1"))
		require.NoError(t, err)
		b, err := service.Issue(newIdentity("user-1"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestTokenService_Validate(t *testing.T) {
	signingKey := []byte(testSigningKey)
	clock := newTestClock()
	service := auth.NewTokenService(signingKey, time.Hour, "test-issuer", nil, auth.WithTokenClock(clock.Now))

	token, err := service.Issue(newIdentity("user-123"))
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{"", "not-a-token", "a.b.c"} {
			_, err := service.Validate(raw)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenMalformed), "%q: %v", raw, err)
			assert.True(t, auth.IsMalformedError(err))
		}
	})

	t.Run("signature invalid", func(t *testing.T) {
		other := auth.NewTokenService([]byte("another-signing-key-000000"), time.Hour, "test-issuer", nil, auth.WithTokenClock(clock.Now))
		forged, err := other.Issue(newIdentity("user-123"))
		require.NoError(t, err)

		_, err = service.Validate(forged)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenSignatureInvalid), "got %v", err)

		parts := strings.Split(token, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err = service.Validate(strings.Join(parts, "."))
		assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenSignatureInvalid), "got %v", err)
	})

	t.Run("rejects other algorithms", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
			},
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(raw)
		assert.True(t, auth.IsTokenInvalid(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := auth.NewTokenService(signingKey, time.Hour, "someone-else", nil, auth.WithTokenClock(clock.Now))
		foreign, err := other.Issue(newIdentity("user-123"))
		require.NoError(t, err)

		_, err = service.Validate(foreign)
		assert.True(t, auth.IsTokenInvalid(err))
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(time.Hour)
		_, err := service.Validate(token)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenExpired), "got %v", err)
		assert.True(t, auth.IsTokenExpiredError(err))
	})
}

func TestTokenService_SignClaims(t *testing.T) {
	service := auth.NewTokenService([]byte(testSigningKey), time.Hour, "", nil)

	_, err := service.SignClaims(nil)
	assert.Error(t, err)

	raw, err := service.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	require.NoError(t, err)

	claims, err := service.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "svc", claims.UserID())
}
