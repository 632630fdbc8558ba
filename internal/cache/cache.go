// Package cache is a small key/value cache for read-mostly lookups: book
// details, catalog pages, review distributions, page payloads and the
// permission flags checked on every authenticated request.
//
// Nothing depends on the cache for correctness. Every caller falls back to the
// database on a miss, and every write path invalidates the keys it affects.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/log"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key. A zero ttl uses the cache default and a
	// negative one never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeletePrefix(ctx context.Context, prefix string)
	// Name identifies the backend in health output.
	Name() string
}

// New builds the cache described by cfg, wrapped with hit/miss metrics.
func New(cfg config.Cache) Cache {
	if !cfg.Enabled {
		return NewNoop()
	}
	return NewMetered(NewMemory(cfg.TTL, cfg.SweepInterval))
}

// GetJSON decodes the cached value for key into dest. Undecodable entries are
// dropped and reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dest any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Debug("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON encodes value and stores it. Encoding failures are logged and ignored.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Debug("Skipping cache write", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, data, ttl)
}

// Key prefixes, in entity:operation form.
const (
	BookListPrefix = "book:list:"
)

func BookDetailKey(bookID uint) string {
	return fmt.Sprintf("book:detail:%d", bookID)
}

// BookListKey derives a stable key from any JSON-encodable query.
func BookListKey(query any) string {
	return BookListPrefix + Hash(query)
}

// BookContentPrefix covers every cached page of a book.
func BookContentPrefix(bookID uint) string {
	return fmt.Sprintf("book:content:%d:", bookID)
}

func BookContentKey(bookID uint, wordsPerPage, page int) string {
	return fmt.Sprintf("%s%d:%d", BookContentPrefix(bookID), wordsPerPage, page)
}

func ReviewDistributionKey(bookID uint) string {
	return fmt.Sprintf("review:distribution:%d", bookID)
}

func UserAuthKey(userID uint) string {
	return fmt.Sprintf("user:auth:%d", userID)
}

// Hash returns a short hex digest of the JSON form of v.
func Hash(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
