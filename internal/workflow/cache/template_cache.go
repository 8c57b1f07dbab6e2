// Package cache provides a redis read-through cache in front of the template store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
	"github.com/OpenNSW/flowtrack/internal/workflow/service"
)

const (
	keyPrefix               = "flowtrack:"
	templateKeyPrefix       = keyPrefix + "template:"
	statusTemplateKeyPrefix = keyPrefix + "status-template:"
)

// TemplateCache wraps a TemplateStore and caches single-template reads in redis.
// Redis failures never fail a read: the cache logs them and falls back to the wrapped store.
type TemplateCache struct {
	next   service.TemplateStore
	client redis.Cmdable
	ttl    time.Duration
}

var _ service.TemplateStore = (*TemplateCache)(nil)

// NewTemplateCache creates a new TemplateCache. Entries expire after ttl.
func NewTemplateCache(next service.TemplateStore, client redis.Cmdable, ttl time.Duration) *TemplateCache {
	return &TemplateCache{next: next, client: client, ttl: ttl}
}

// TemplateKey returns the redis key of a workflow template.
func TemplateKey(id uuid.UUID) string { return templateKeyPrefix + id.String() }

// StatusTemplateKey returns the redis key of a status template.
func StatusTemplateKey(id uuid.UUID) string { return statusTemplateKeyPrefix + id.String() }

func (c *TemplateCache) GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	var template model.WorkflowTemplate
	if c.lookup(ctx, TemplateKey(id), &template) {
		return &template, nil
	}

	loaded, err := c.next.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, TemplateKey(id), loaded)
	return loaded, nil
}

func (c *TemplateCache) GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error) {
	var template model.StatusTemplate
	if c.lookup(ctx, StatusTemplateKey(id), &template) {
		return &template, nil
	}

	loaded, err := c.next.GetStatusTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, StatusTemplateKey(id), loaded)
	return loaded, nil
}

func (c *TemplateCache) ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error) {
	return c.next.ListTemplates(ctx, page, size)
}

func (c *TemplateCache) ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error) {
	return c.next.ListStatusTemplates(ctx, page, size)
}

func (c *TemplateCache) CreateTemplate(ctx context.Context, template *model.WorkflowTemplate) error {
	return c.next.CreateTemplate(ctx, template)
}

// CreateStatusTemplate stores the template. A new default clears the flag on other templates, so every
// cached status template is dropped in that case.
func (c *TemplateCache) CreateStatusTemplate(ctx context.Context, template *model.StatusTemplate) error {
	if err := c.next.CreateStatusTemplate(ctx, template); err != nil {
		return err
	}
	if template.IsDefault {
		c.invalidatePrefix(ctx, statusTemplateKeyPrefix)
	}
	return nil
}

func (c *TemplateCache) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if err := c.next.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, TemplateKey(id))
	return nil
}

func (c *TemplateCache) DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error {
	if err := c.next.DeleteStatusTemplate(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, StatusTemplateKey(id))
	return nil
}

func (c *TemplateCache) lookup(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "template cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.WarnContext(ctx, "dropping undecodable template cache entry", "key", key, "error", err)
		c.invalidate(ctx, key)
		return false
	}
	return true
}

func (c *TemplateCache) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode template for cache", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "template cache write failed", "key", key, "error", err)
	}
}

func (c *TemplateCache) invalidate(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "template cache invalidation failed", "keys", keys, "error", err)
	}
}

func (c *TemplateCache) invalidatePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "template cache scan failed", "prefix", prefix, "error", err)
	}
	if len(keys) > 0 {
		c.invalidate(ctx, keys...)
	}
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client redis.Cmdable) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}
