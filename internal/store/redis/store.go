// Package redis implements the record store on Redis via rueidis, one hash
// per reference.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/store"
)

const (
	fieldReference = "reference"
	fieldText      = "text"
	fieldEmbedding = "embedding"
)

// Compile-time checks: Store implements the store contracts.
var (
	_ store.Store           = (*Store)(nil)
	_ store.ReadinessWaiter = (*Store)(nil)
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	Logger    *zap.Logger
}

// Store persists paragraph records as Redis hashes.
type Store struct {
	client rueidis.Client
	prefix string
	logger *zap.Logger
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "corpusd:paragraph:"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix, logger: cfg.Logger}, nil
}

// Insert stores a record. HSET on an existing key overwrites its fields, so
// one current row per reference holds here too.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	cmd := s.client.B().Hset().Key(s.key(rec.Reference)).FieldValue().
		FieldValue(fieldReference, rec.Reference).
		FieldValue(fieldText, rec.Text).
		FieldValue(fieldEmbedding, string(store.EncodeVector(rec.Embedding))).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("hset %q: %v: %w", rec.Reference, err, domain.ErrStoreWrite)
	}
	return nil
}

// List returns every stored record. Hashes with missing fields or an
// undecodable embedding are logged and skipped.
func (s *Store) List(ctx context.Context) ([]domain.Record, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.client.B().Hgetall().Key(key).Build()
	}

	records := make([]domain.Record, 0, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		fields, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %v: %w", keys[i], err, domain.ErrStoreRead)
		}
		rec, err := recordFromFields(fields)
		if err != nil {
			s.logger.Warn("skipping malformed paragraph hash",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes the hash for reference. Returns true if a key was removed.
func (s *Store) Delete(ctx context.Context, reference string) (bool, error) {
	cmd := s.client.B().Del().Key(s.key(reference)).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("del %q: %v: %w", reference, err, domain.ErrStoreWrite)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) key(reference string) string {
	return s.prefix + reference
}

func (s *Store) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(s.prefix + "*").Count(100).Build()
		res, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan: %v: %w", err, domain.ErrStoreRead)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

func recordFromFields(fields map[string]string) (domain.Record, error) {
	reference, ok := fields[fieldReference]
	if !ok {
		return domain.Record{}, fmt.Errorf("missing reference field: %w", domain.ErrMalformedRecord)
	}
	text, ok := fields[fieldText]
	if !ok {
		return domain.Record{}, fmt.Errorf("missing text field: %w", domain.ErrMalformedRecord)
	}
	embedding, err := store.DecodeVector([]byte(fields[fieldEmbedding]))
	if err != nil {
		return domain.Record{}, err
	}
	return domain.Record{Reference: reference, Text: text, Embedding: embedding}, nil
}
