package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
)

// ChallengeStore holds short-lived two-factor challenges: the SMS code keyed
// by challenge id, plus an attempt counter so codes cannot be brute forced.
type ChallengeStore interface {
	Put(ctx context.Context, challengeID, code string, ttl time.Duration) error
	// Verify consumes the challenge on success. Each failed attempt counts
	// against maxAttempts; exceeding it deletes the challenge.
	Verify(ctx context.Context, challengeID, code string, maxAttempts int) error
	Close() error
}

type challengeStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewChallengeStore(log *logger.Logger) (ChallengeStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &challengeStore{
		log: log.With("client", "ChallengeStore"),
		rdb: rdb,
	}, nil
}

func codeKey(challengeID string) string     { return "2fa:code:" + challengeID }
func attemptsKey(challengeID string) string { return "2fa:attempts:" + challengeID }

func (s *challengeStore) Put(ctx context.Context, challengeID, code string, ttl time.Duration) error {
	if challengeID == "" || code == "" {
		return fmt.Errorf("challenge id and code required: %w", pkgerrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, codeKey(challengeID), code, ttl)
	pipe.Set(ctx, attemptsKey(challengeID), 0, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *challengeStore) Verify(ctx context.Context, challengeID, code string, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	stored, err := s.rdb.Get(ctx, codeKey(challengeID)).Result()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("challenge expired or already used: %w", pkgerrors.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}

	attempts, err := s.rdb.Incr(ctx, attemptsKey(challengeID)).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	if attempts > int64(maxAttempts) {
		s.discard(ctx, challengeID)
		return fmt.Errorf("too many attempts: %w", pkgerrors.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return fmt.Errorf("invalid code: %w", pkgerrors.ErrUnauthorized)
	}

	s.discard(ctx, challengeID)
	return nil
}

func (s *challengeStore) discard(ctx context.Context, challengeID string) {
	if err := s.rdb.Del(ctx, codeKey(challengeID), attemptsKey(challengeID)).Err(); err != nil {
		s.log.Warn("Failed to discard challenge", "challenge_id", challengeID, "error", err)
	}
}

func (s *challengeStore) Close() error {
	return s.rdb.Close()
}
