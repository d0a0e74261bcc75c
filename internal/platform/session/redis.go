package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medsave/rxwizard/internal/domain/draft"
)

const (
	KeyPrefix = "rx:draft:"

	defaultMaxRetries = 8
)

// Redis stores drafts as JSON snapshots. Updates use WATCH/MULTI and are
// retried when another writer touches the key first.
type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
	logger     zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:     client,
		ttl:        ttl,
		maxRetries: defaultMaxRetries,
		logger:     logger.With().Str("component", "session.redis").Logger(),
	}
}

func key(id string) string { return KeyPrefix + id }

func (r *Redis) Create(ctx context.Context, s *draft.Store) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding draft: %w", err)
	}
	id := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key(id), data, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("storing draft: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("storing draft: id %s already taken", id)
	}
	return id, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*draft.Store, error) {
	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	return decode(raw)
}

func (r *Redis) Update(ctx context.Context, id string, fn func(*draft.Store) error) (*draft.Store, error) {
	k := key(id)
	var out *draft.Store

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("loading draft: %w", err)
		}
		s, err := decode(raw)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding draft: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, data, r.ttl)
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, k)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		r.logger.Debug().Str("draft_id", id).Int("attempt", attempt+1).Msg("draft update conflict, retrying")
	}
	return nil, ErrConflict
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decode(raw []byte) (*draft.Store, error) {
	s := draft.NewStore()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	return s, nil
}
