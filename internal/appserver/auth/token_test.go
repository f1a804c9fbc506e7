package auth

import (
	"testing"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	svc := New("top-secret", time.Hour)

	token, err := svc.Sign(types.Claims{Sub: 42, Username: "alice"})
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, 42, claims.Sub)
	require.Equal(t, "alice", claims.Username)
	require.NotZero(t, claims.Exp)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	svc := New("top-secret", time.Hour)
	token, err := svc.Sign(types.Claims{Sub: 1, Username: "bob"})
	require.NoError(t, err)

	other := New("different-secret", time.Hour)
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	svc := New("top-secret", -time.Hour)
	token, err := svc.Sign(types.Claims{Sub: 1, Username: "bob"})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestHashPassword_ComparePasswordRoundTrip(t *testing.T) {
	svc := New("secret", time.Hour)
	hash, err := svc.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", hash)

	require.NoError(t, svc.ComparePassword(hash, "correct-horse"))
	require.Error(t, svc.ComparePassword(hash, "wrong-password"))
}
