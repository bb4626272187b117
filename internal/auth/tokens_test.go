package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) (*TokenService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenService(client, "unit-secret", time.Hour), mr
}

func liveTokens(t *testing.T, mr *miniredis.Miniredis, userID int64) int {
	t.Helper()
	if !mr.Exists(userTokensKey(userID)) {
		return 0
	}
	members, err := mr.SMembers(userTokensKey(userID))
	require.NoError(t, err)
	return len(members)
}

func TestIssueAndValidate(t *testing.T) {
	svc, mr := newTokenService(t)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.ID)

	uid, jti, err := svc.Validate(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)
	require.Equal(t, tok.ID, jti)

	require.Equal(t, 1, liveTokens(t, mr, 42))
}

func TestRevokedTokenIsRejected(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, 7)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, 7, first.ID))
	_, _, err = svc.Validate(ctx, first.AccessToken)
	require.ErrorIs(t, err, ErrTokenRevoked)

	_, _, err = svc.Validate(ctx, second.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, 7))
	_, _, err = svc.Validate(ctx, second.AccessToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeUsersCountsTokens(t *testing.T) {
	svc, mr := newTokenService(t)
	ctx := context.Background()
	for _, uid := range []int64{1, 1, 2, 3} {
		_, err := svc.Issue(ctx, uid)
		require.NoError(t, err)
	}
	n, err := svc.RevokeUsers(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, 1, liveTokens(t, mr, 3))
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "1",
		ID:        "abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, _, err = svc.Validate(ctx, forged)
	require.ErrorIs(t, err, ErrTokenInvalid)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, _, err = svc.Validate(ctx, unsigned)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = svc.Validate(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()
	tok, err := svc.Issue(ctx, 5)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, _, err = svc.Validate(ctx, tok.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPruneDropsExpiredIDs(t *testing.T) {
	svc, mr := newTokenService(t)
	ctx := context.Background()

	old, err := svc.Issue(ctx, 9)
	require.NoError(t, err)
	mr.FastForward(30 * time.Minute)
	_, err = svc.Issue(ctx, 9)
	require.NoError(t, err)

	// The first token key expires while the index is kept alive by the second.
	mr.FastForward(45 * time.Minute)
	require.False(t, mr.Exists(tokenKey(old.ID)))

	removed, err := svc.Prune(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.Equal(t, 1, liveTokens(t, mr, 9))
}
