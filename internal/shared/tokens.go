package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore issues and resolves bearer tokens backed by Redis. A token is
// opaque to clients; the payload lives server-side with a sliding TTL.
type TokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type tokenPayload struct {
	UserID int64  `json:"user_id"`
	Nombre string `json:"nombre"`
	Role   string `json:"role"`
}

// ErrTokenNotFound indicates an unknown or expired token.
var ErrTokenNotFound = errors.New("token not found")

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, prefix string, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, prefix: prefix, ttl: ttl}
}

// Issue mints a new token for the given actor.
func (ts *TokenStore) Issue(ctx context.Context, actor Actor) (string, error) {
	token := ts.generateToken()
	data, err := json.Marshal(tokenPayload{UserID: actor.UserID, Nombre: actor.Nombre, Role: actor.Role})
	if err != nil {
		return "", err
	}
	if err := ts.client.Set(ctx, ts.redisKey(token), data, ts.ttl).Err(); err != nil {
		return "", WrapError(KindStorage, "No se pudo crear la sesión", err)
	}
	return token, nil
}

// Resolve looks up the actor behind a token, refreshing its TTL.
func (ts *TokenStore) Resolve(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	data, err := ts.client.Get(ctx, ts.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, WrapError(KindStorage, "No se pudo validar la sesión", err)
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	_ = ts.client.Expire(ctx, ts.redisKey(token), ts.ttl).Err()
	return &Actor{UserID: payload.UserID, Nombre: payload.Nombre, Role: payload.Role}, nil
}

// Revoke deletes a token, typically on logout.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := ts.client.Del(ctx, ts.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (ts *TokenStore) TTL() time.Duration { return ts.ttl }

func (ts *TokenStore) redisKey(token string) string {
	return ts.prefix + ":" + token
}

func (ts *TokenStore) generateToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
