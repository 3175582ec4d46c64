//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	platformredis "medicineweb/internal/platform/redis"
	"medicineweb/internal/professional/cache"
	"medicineweb/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedis(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	key := cache.KeyProfessional(uuid.New())

	_, ok, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.cache.Set(ctx, key, []byte(`{"full_name":"Ana"}`), time.Minute))

	payload, ok, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.True(ok)
	s.JSONEq(`{"full_name":"Ana"}`, string(payload))
}

func (s *RedisCacheSuite) TestRemove() {
	ctx := context.Background()
	keys := []string{
		cache.KeyActiveListing,
		cache.KeySpecialtyListing("cardiology"),
	}
	for _, key := range keys {
		s.Require().NoError(s.cache.Set(ctx, key, []byte(`[]`), time.Minute))
	}

	// Removing a mix of present and missing keys succeeds.
	s.Require().NoError(s.cache.Remove(ctx, append(keys, "missing-key")...))

	for _, key := range keys {
		_, ok, err := s.cache.Get(ctx, key)
		s.Require().NoError(err)
		s.False(ok)
	}
}

func (s *RedisCacheSuite) TestTTLExpiry() {
	ctx := context.Background()
	key := cache.KeyActiveListing
	s.Require().NoError(s.cache.Set(ctx, key, []byte(`[]`), 50*time.Millisecond))

	time.Sleep(120 * time.Millisecond)

	_, ok, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.False(ok)
}
