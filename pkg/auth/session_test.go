package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestInspectToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, "user-1", expiry)

	info, err := InspectToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.Subject)
	assert.True(t, info.ExpiresAt.Equal(expiry))
	assert.False(t, info.Expired(time.Now()))
}

func TestInspectToken_Opaque(t *testing.T) {
	info, err := InspectToken("opaque-session-token")
	require.NoError(t, err)
	assert.False(t, info.HasExpiry())
	assert.False(t, info.Expired(time.Now()))
}

func TestInspectToken_Errors(t *testing.T) {
	_, err := InspectToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = InspectToken("a.b.c")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc", want: "abc"},
		{name: "lowercase_scheme", header: "bearer abc", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "basic_scheme", header: "Basic abc", wantErr: true},
		{name: "no_token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSession_TokenAndExpiry(t *testing.T) {
	session, err := NewSession(signToken(t, "user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	token, err := session.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, session.Expired())

	calls := 0
	session.AddExpireHook(func() { calls++ })
	session.OnExpire()
	session.OnExpire()

	assert.Equal(t, 1, calls)
	assert.True(t, session.Expired())
	_, err = session.Token()
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSession_ExpiredClaims(t *testing.T) {
	session, err := NewSession(signToken(t, "user-1", time.Now().Add(-time.Minute)))
	require.NoError(t, err)

	_, err = session.Token()
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, session.Expired())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("token-a")
	assert.Len(t, a, 32)
	assert.Equal(t, a, Fingerprint("token-a"))
	assert.NotEqual(t, a, Fingerprint("token-b"))
	assert.NotContains(t, a, "token")
}

func TestTokenSource_DrivesOAuthTransport(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	session, err := NewSession("opaque-token")
	require.NoError(t, err)

	client := &http.Client{Transport: &oauth2.Transport{Source: TokenSource(session)}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer opaque-token", gotHeader)
}
