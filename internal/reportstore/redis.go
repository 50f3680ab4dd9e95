// Package reportstore keeps recent run reports in Redis so the last outcome
// can be inspected after the triggering request has returned.
package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dev-tams/blobsweep/internal/app"
	"github.com/dev-tams/blobsweep/internal/config"
)

const (
	defaultKeyPrefix = "blobsweep"
	defaultTTL       = 30 * 24 * time.Hour
)

// Record is what gets stored per run. Report holds the response body exactly
// as the trigger returned it.
type Record struct {
	RunID      string          `json:"runId"`
	Store      string          `json:"store"`
	DryRun     bool            `json:"dryRun"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
	Report     json.RawMessage `json:"report"`
}

func NewRecord(r *app.Report) (Record, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("encode report: %w", err)
	}
	return Record{
		RunID:      r.RunID,
		Store:      r.Store,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		DurationMs: r.Duration.Milliseconds(),
		Report:     body,
	}, nil
}

type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	history   int
	ttl       time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

func NewWithClient(client redis.UniversalClient, cfg config.RedisConfig) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, keyPrefix: prefix, history: cfg.History, ttl: ttl}
}

func buildRedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return &redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

func (s *Store) lastKey() string    { return s.keyPrefix + ":report:last" }
func (s *Store) historyKey() string { return s.keyPrefix + ":report:history" }

// SaveReport stores r as the latest report and pushes it onto the bounded
// history list.
func (s *Store) SaveReport(ctx context.Context, r *app.Report) error {
	rec, err := NewRecord(r)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.lastKey(), payload, s.ttl)
		if s.history > 0 {
			p.LPush(ctx, s.historyKey(), payload)
			p.LTrim(ctx, s.historyKey(), 0, int64(s.history-1))
			p.Expire(ctx, s.historyKey(), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save report: %w", err)
	}
	return nil
}

// Last returns the most recent record, or false when none is stored.
func (s *Store) Last(ctx context.Context) (Record, bool, error) {
	payload, err := s.client.Get(ctx, s.lastKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record: %w", err)
	}
	return rec, true, nil
}

// History returns up to n records, newest first.
func (s *Store) History(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := s.client.LRange(ctx, s.historyKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	out := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
