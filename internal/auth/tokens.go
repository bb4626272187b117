package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer      = "jokes-api"
	tokenKeyPrefix   = "token:"
	userTokensPrefix = "user_tokens:"
)

var (
	// ErrTokenInvalid covers malformed, expired and wrongly signed tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrTokenRevoked marks a well-formed token whose id is no longer registered.
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// TokenService issues HS256 bearer tokens and tracks their ids in Redis so
// they can be revoked individually or per user.
type TokenService struct {
	client redis.UniversalClient
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(client redis.UniversalClient, secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		client: client,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a new token for userID and registers its id.
func (s *TokenService) Issue(ctx context.Context, userID int64) (Token, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	jti := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}

	setKey := userTokensKey(userID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, tokenKey(jti), userID, s.ttl)
		p.SAdd(ctx, setKey, jti)
		p.Expire(ctx, setKey, s.ttl)
		return nil
	})
	if err != nil {
		return Token{}, fmt.Errorf("auth: register token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires, ID: jti}, nil
}

// Validate parses raw and returns the user id and token id it carries.
func (s *TokenService) Validate(ctx context.Context, raw string) (int64, string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.ID == "" {
		return 0, "", ErrTokenInvalid
	}

	owner, err := s.client.Get(ctx, tokenKey(claims.ID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, "", ErrTokenRevoked
	}
	if err != nil {
		return 0, "", fmt.Errorf("auth: lookup token: %w", err)
	}
	if owner != userID {
		return 0, "", ErrTokenRevoked
	}
	return userID, claims.ID, nil
}

// Revoke removes a single token id.
func (s *TokenService) Revoke(ctx context.Context, userID int64, jti string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, tokenKey(jti))
		p.SRem(ctx, userTokensKey(userID), jti)
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// RevokeAll removes every token registered for userID.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	_, err := s.revokeUser(ctx, userID)
	return err
}

// RevokeUsers removes every token of every listed user and reports how many
// token ids were dropped.
func (s *TokenService) RevokeUsers(ctx context.Context, userIDs []int64) (int, error) {
	total := 0
	for _, id := range userIDs {
		n, err := s.revokeUser(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *TokenService) revokeUser(ctx context.Context, userID int64) (int, error) {
	setKey := userTokensKey(userID)
	jtis, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("auth: list user tokens: %w", err)
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, tokenKey(jti))
	}
	keys = append(keys, setKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("auth: revoke user tokens: %w", err)
	}
	return len(jtis), nil
}

// Prune drops token ids whose token key has already expired from the per-user
// indexes. It returns the number of ids removed.
func (s *TokenService) Prune(ctx context.Context) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, userTokensPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		jtis, err := s.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return removed, fmt.Errorf("auth: prune members: %w", err)
		}
		for _, jti := range jtis {
			exists, err := s.client.Exists(ctx, tokenKey(jti)).Result()
			if err != nil {
				return removed, fmt.Errorf("auth: prune exists: %w", err)
			}
			if exists > 0 {
				continue
			}
			if err := s.client.SRem(ctx, setKey, jti).Err(); err != nil {
				return removed, fmt.Errorf("auth: prune remove: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("auth: prune scan: %w", err)
	}
	return removed, nil
}

func tokenKey(jti string) string {
	return tokenKeyPrefix + jti
}

func userTokensKey(userID int64) string {
	return userTokensPrefix + strconv.FormatInt(userID, 10)
}
