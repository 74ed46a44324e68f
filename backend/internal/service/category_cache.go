package service

import (
	"fmt"
	"time"

	"github.com/catalyst-codex/codex/shared/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedCategory struct {
	category  domain.Category
	expiresAt time.Time
}

// CategoryCache is a size bounded cache of categories whose entries expire
// after ttl. Categories are read-only at runtime so entries are never
// invalidated explicitly.
type CategoryCache struct {
	lru *lru.Cache[domain.CategoryId, cachedCategory]
	ttl time.Duration
	now func() time.Time
}

func NewCategoryCache(size int, ttl time.Duration) (*CategoryCache, error) {
	l, err := lru.New[domain.CategoryId, cachedCategory](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create category cache: %w", err)
	}
	return &CategoryCache{lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *CategoryCache) Get(id domain.CategoryId) (domain.Category, bool) {
	item, ok := c.lru.Get(id)
	if !ok {
		categoryCacheLookups.WithLabelValues("miss").Inc()
		return domain.Category{}, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(id)
		categoryCacheLookups.WithLabelValues("expired").Inc()
		return domain.Category{}, false
	}
	categoryCacheLookups.WithLabelValues("hit").Inc()
	return item.category, true
}

func (c *CategoryCache) Add(category domain.Category) {
	c.lru.Add(category.Id, cachedCategory{category: category, expiresAt: c.now().Add(c.ttl)})
}

func (c *CategoryCache) Len() int {
	return c.lru.Len()
}

func (c *CategoryCache) Purge() {
	c.lru.Purge()
}
