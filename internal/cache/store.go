// Package cache provides the shared cache store used by the pipeline and
// the scan orchestrator. It wraps a remote Redis instance with fixed
// per-namespace TTLs, transparent compression for large values, and total
// failure tolerance: a broken store degrades every read to a miss and every
// write to a no-op, it never fails a request.
package cache

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
)

// ErrNotSupported is returned for operations the store deliberately does
// not implement, such as prefix-based bulk invalidation.
var ErrNotSupported = errors.New("cache: operation not supported")

const (
	// maxEntryBytes is the hard ceiling above which values are never cached.
	maxEntryBytes = 2 << 20
	// compressThreshold is the length above which values are gzip-compressed
	// before storage.
	compressThreshold = 5000
	// compressPrefix tags compressed values. Must stay 3 bytes.
	compressPrefix = "gz:"
)

// Config contains cache store connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store wraps a Redis client. Get and Set never surface errors to callers;
// entries are immutable once written and concurrent writers of the same key
// are expected to write equivalent values, so no locking is needed.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a cache store. A failed initial ping is logged but does
// not fail construction: the store simply operates degraded until the
// server becomes reachable.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("cache store unreachable, operating degraded",
			slog.String("addr", cfg.Addr), slog.Any("error", err))
	}

	return &Store{
		client: client,
		logger: logger.With(slog.String("component", "cache")),
	}
}

// NewStoreWithClient wraps an existing client. Used by tests.
func NewStoreWithClient(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With(slog.String("component", "cache")),
	}
}

// Get retrieves a value. The second return is false on a miss, on any store
// failure, and on a corrupt or undecodable entry.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
		return "", false
	}

	if !strings.HasPrefix(val, compressPrefix) {
		return val, true
	}

	decoded, err := decompress(val[len(compressPrefix):])
	if err != nil {
		// A tampered or truncated entry reads as absent, never as an error.
		s.logger.Warn("cache entry corrupt, treating as miss",
			slog.String("key", key), slog.Any("error", err))
		return "", false
	}
	return decoded, true
}

// Set stores a value under the namespace's fixed TTL. Oversized values are
// silently skipped; large values are compressed and tagged. Store failures
// are logged and swallowed.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if len(value) > maxEntryBytes {
		s.logger.Debug("value exceeds cache ceiling, not cached",
			slog.String("key", key), slog.Int("bytes", len(value)))
		return
	}

	encoded := value
	if len(value) > compressThreshold {
		compressed, err := compress(value)
		if err != nil {
			// Compression failure is non-fatal: store uncompressed.
			s.logger.Warn("compression failed, storing raw",
				slog.String("key", key), slog.Any("error", err))
		} else {
			encoded = compressPrefix + compressed
		}
	}

	if err := s.client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// InvalidateScope would remove every entry for a scope. Redis offers no
// safe prefix-scan primitive we are willing to run against a shared
// instance, so the operation is an explicit unsupported signal rather than
// a silent no-op.
func (s *Store) InvalidateScope(ctx context.Context, scope Scope) error {
	return ErrNotSupported
}

// Ping checks connectivity to the underlying store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func compress(value string) (string, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(value)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decompress(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
