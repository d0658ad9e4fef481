package redis_test

import (
	"context"
	"testing"

	"go-recruitment-intake/pkg/redis"

	"github.com/stretchr/testify/assert"
)

func TestConnect(t *testing.T) {
	t.Run("Should refuse an empty URL", func(t *testing.T) {
		client, err := redis.Connect(context.Background(), redis.Config{})
		assert.Nil(t, client)
		assert.ErrorIs(t, err, redis.ErrNotConfigured)
	})

	t.Run("Should reject a malformed URL", func(t *testing.T) {
		client, err := redis.Connect(context.Background(), redis.Config{URL: "http://not-redis"})
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "invalid URL")
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("Should report a missing client", func(t *testing.T) {
		assert.Error(t, redis.HealthCheck(nil)(context.Background()))
	})
}
