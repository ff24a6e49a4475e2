package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Resolver turns a bearer token into a user id. The database is the source
// of truth; Redis is a short-lived cache in front of it.
type Resolver struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (r *Resolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	key := fmt.Sprintf(redisx.KeyAuthToken, token)
	if uid, err := r.Redis.Get(ctx, key).Result(); err == nil && uid != "" {
		return uid, nil
	}

	var userID string
	err := r.DB.QueryRow(ctx, `
		SELECT user_id FROM api_tokens
		WHERE token=$1 AND (expires_at IS NULL OR expires_at > now())`, token,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}

	_ = r.Redis.Set(ctx, key, userID, redisx.TTLAuthToken).Err()
	return userID, nil
}
