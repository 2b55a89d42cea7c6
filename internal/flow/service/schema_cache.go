package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SchemaCache holds form schemas by (template, version). Versions are
// append-only, so an entry never goes stale. Graphs and statuses are never
// cached.
type SchemaCache interface {
	Get(ctx context.Context, templateID string, version int) (*entity.FormSchema, bool)
	Set(ctx context.Context, templateID string, version int, schema entity.FormSchema)
}

// NoopSchemaCache 不缓存
type NoopSchemaCache struct{}

// Get 始终未命中
func (NoopSchemaCache) Get(context.Context, string, int) (*entity.FormSchema, bool) { return nil, false }

// Set 丢弃写入
func (NoopSchemaCache) Set(context.Context, string, int, entity.FormSchema) {}

// RedisSchemaCache 基于 Redis 的表单结构缓存；读写失败只记日志，按未命中处理
type RedisSchemaCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSchemaCache 创建 Redis 表单结构缓存
func NewRedisSchemaCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSchemaCache {
	return &RedisSchemaCache{rdb: rdb, ttl: ttl, logger: logger}
}

func schemaKey(templateID string, version int) string {
	return fmt.Sprintf("wrapflow:schema:%s:v%d", templateID, version)
}

// Get 读取缓存的表单结构；键不存在、读取失败或内容损坏都视为未命中
func (c *RedisSchemaCache) Get(ctx context.Context, templateID string, version int) (*entity.FormSchema, bool) {
	raw, err := c.rdb.Get(ctx, schemaKey(templateID, version)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("schema cache get failed", zap.String("template_id", templateID), zap.Int("version", version), zap.Error(err))
		}
		return nil, false
	}
	var schema entity.FormSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		c.logger.Warn("schema cache entry corrupt", zap.String("template_id", templateID), zap.Int("version", version), zap.Error(err))
		return nil, false
	}
	return &schema, true
}

// Set 写入表单结构，过期时间为 ttl；失败只记日志
func (c *RedisSchemaCache) Set(ctx context.Context, templateID string, version int, schema entity.FormSchema) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, schemaKey(templateID, version), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("schema cache set failed", zap.String("template_id", templateID), zap.Int("version", version), zap.Error(err))
	}
}
