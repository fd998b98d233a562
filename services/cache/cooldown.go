package cache

import (
	stderrors "errors"
	"strings"
	"time"

	"sjsage522/salecrawler/pkg/errors"
)

const cooldownPrefix = "salecrawler:cooldown:"

// ErrCooldown is returned when a run for the same brand finished too recently
var ErrCooldown = stderrors.New("run skipped: brand is cooling down")

// Cooldown marks finished runs so the same brand is not scraped again within ttl
type Cooldown struct {
	cache CacheService
	ttl   time.Duration
}

// NewCooldown creates a cooldown guard. A zero ttl disables it.
func NewCooldown(cache CacheService, ttl time.Duration) *Cooldown {
	return &Cooldown{cache: cache, ttl: ttl}
}

// Enabled reports whether the guard has any effect
func (c *Cooldown) Enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// Check returns ErrCooldown while brand is cooling down
func (c *Cooldown) Check(brand string) error {
	if !c.Enabled() {
		return nil
	}

	_, err := c.cache.Get(CooldownKey(brand))
	if stderrors.Is(err, ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return errors.NewCache("cooldown", "read cooldown marker", err)
	}
	return ErrCooldown
}

// Mark starts the cooldown for brand
func (c *Cooldown) Mark(brand string) error {
	if !c.Enabled() {
		return nil
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	if err := c.cache.Set(CooldownKey(brand), stamp, c.ttl); err != nil {
		return errors.NewCache("cooldown", "write cooldown marker", err)
	}
	return nil
}

// CooldownKey builds the cache key for brand. Memcache keys cannot hold whitespace.
func CooldownKey(brand string) string {
	return cooldownPrefix + strings.Join(strings.Fields(strings.ToLower(brand)), "_")
}
