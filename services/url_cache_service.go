package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"stylistapi/metrics"
	"stylistapi/stylist"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/rs/zerolog/log"
)

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, objectKey string) (string, error)
}

// newRistrettoStore builds the in-process store shared by the caches below.
// The raw client is returned so writers can wait for buffered sets.
func newRistrettoStore(maxCost int64) (*ristretto_store.RistrettoStore, *ristretto.Cache, error) {
	if maxCost <= 0 {
		maxCost = 1 << 27
	}
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return ristretto_store.NewRistretto(client), client, nil
}

// URLCacheService hands out presigned read URLs for garment photos, reusing
// one until shortly before it expires.
type URLCacheService struct {
	cache      *cache.LoadableCache[string]
	bucketName string
}

// NewURLCacheService loads missing keys from the bucket. ttl must stay below
// the presign expiry.
func NewURLCacheService(awsService AWSServiceProvider, bucketName string, ttl time.Duration, maxCost int64) (*URLCacheService, error) {
	if ttl <= 0 || ttl >= presignedURLExpiration {
		ttl = presignedURLExpiration - 3*time.Minute
	}
	ristrettoStore, _, err := newRistrettoStore(maxCost)
	if err != nil {
		return nil, err
	}

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		objectKey, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("invalid key type provided to URL cache: expected string, got %T", key)
		}
		log.Debug().Str("key", objectKey).Msg("url cache miss")
		url, err := awsService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
		return url, []store.Option{store.WithExpiration(ttl)}, err
	}

	return &URLCacheService{
		cache:      cache.NewLoadable[string](loadFunction, cache.New[string](ristrettoStore)),
		bucketName: bucketName,
	}, nil
}

func (s *URLCacheService) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return s.cache.Get(ctx, objectKey)
}

// CachedTextGenerator memoizes explanations by prompt. Identical outfits in
// an identical context read the same text instead of spending a model call.
type CachedTextGenerator struct {
	next  stylist.TextGenerator
	cache *cache.Cache[string]
	flush func()
	ttl   time.Duration
}

func NewCachedTextGenerator(next stylist.TextGenerator, ttl time.Duration, maxCost int64) (*CachedTextGenerator, error) {
	ristrettoStore, client, err := newRistrettoStore(maxCost)
	if err != nil {
		return nil, err
	}
	return &CachedTextGenerator{
		next:  next,
		cache: cache.New[string](ristrettoStore),
		flush: client.Wait,
		ttl:   ttl,
	}, nil
}

func (g *CachedTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if text, err := g.cache.Get(ctx, key); err == nil && text != "" {
		metrics.ExplanationCacheTotal.WithLabelValues("hit").Inc()
		return text, nil
	}
	metrics.ExplanationCacheTotal.WithLabelValues("miss").Inc()

	text, err := g.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	opts := []store.Option{store.WithCost(int64(len(text)))}
	if g.ttl > 0 {
		opts = append(opts, store.WithExpiration(g.ttl))
	}
	if err := g.cache.Set(ctx, key, text, opts...); err != nil {
		log.Warn().Err(err).Msg("failed to cache explanation")
	}
	g.flush()
	return text, nil
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "explain:" + hex.EncodeToString(sum[:])
}
