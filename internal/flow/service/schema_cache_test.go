package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNoopSchemaCache(t *testing.T) {
	var c SchemaCache = NoopSchemaCache{}
	c.Set(context.Background(), "tpl-proof", 1, vinSchema())
	_, ok := c.Get(context.Background(), "tpl-proof", 1)
	assert.False(t, ok)
}

func TestRedisSchemaCacheDegradesToMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewRedisSchemaCache(rdb, time.Minute, zap.NewNop())
	c.Set(context.Background(), "tpl-proof", 1, vinSchema())
	_, ok := c.Get(context.Background(), "tpl-proof", 1)
	assert.False(t, ok)
}

func TestSchemaKey(t *testing.T) {
	assert.Equal(t, "wrapflow:schema:tpl-proof:v3", schemaKey("tpl-proof", 3))
}
