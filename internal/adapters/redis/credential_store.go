package redis

// Package redis provides Redis-based adapters for session persistence.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	"github.com/target/clinic-session/internal/ports"
)

// The {session} hash tag keeps the three keys in one cluster slot for MGET, MULTI and DEL.
const (
	keyToken      = "{session}:token"
	keyExpiration = "{session}:tokenExpiration"
	keyUser       = "{session}:currentUser"
)

// CredentialStore is a Redis-backed CredentialStorage.
// The three entries share one TTL derived from the token expiry, so Redis drops them together.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewCredentialStore creates a Redis credential store with the default "clinic:" key prefix.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return NewCredentialStoreWithPrefix(client, "clinic:")
}

// NewCredentialStoreWithPrefix creates a Redis credential store with a custom key prefix.
func NewCredentialStoreWithPrefix(client redis.UniversalClient, prefix string) *CredentialStore {
	return &CredentialStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *CredentialStore) keys() []string {
	return []string{s.prefix + keyToken, s.prefix + keyExpiration, s.prefix + keyUser}
}

func (s *CredentialStore) Load(ctx context.Context) (ports.Record, error) {
	vals, err := s.client.MGet(ctx, s.keys()...).Result()
	if err != nil {
		return ports.Record{}, fmt.Errorf("redis mget: %w", err)
	}

	str := func(i int) string {
		if i >= len(vals) || vals[i] == nil {
			return ""
		}
		v, _ := vals[i].(string)
		return v
	}
	return ports.Record{
		Token:           str(0),
		TokenExpiration: str(1),
		CurrentUser:     str(2),
	}, nil
}

func (s *CredentialStore) Save(ctx context.Context, rec ports.Record) error {
	if rec.Token == "" {
		return errors.New("token cannot be empty")
	}

	exp, err := domainauth.ParseExpiry(rec.TokenExpiration)
	if err != nil {
		return fmt.Errorf("parse token expiration: %w", err)
	}
	ttl := exp.Sub(s.now())
	if ttl <= 0 {
		// Credential is already expired, don't save it
		return errors.New("credential is expired")
	}

	keys := s.keys()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys[0], rec.Token, ttl)
		pipe.Set(ctx, keys[1], rec.TokenExpiration, ttl)
		pipe.Set(ctx, keys[2], rec.CurrentUser, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.keys()...).Err(); err != nil {
		return fmt.Errorf("redis clear credential: %w", err)
	}
	return nil
}
