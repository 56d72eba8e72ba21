// Package ttl computes and evaluates item expiration timestamps.
//
// Timestamps are Unix seconds. Every write gets a concrete expiration: a
// caller supplied duration, the configured default, or DefaultTTLSeconds.
package ttl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zeriontech/codestore/pkg/store"
)

// DefaultTTLSeconds is used when no valid default is configured.
const DefaultTTLSeconds int64 = 86400

// MaxTTLSeconds bounds any duration, keeping now + duration far from int64 overflow.
const MaxTTLSeconds int64 = 100 * 365 * 24 * 60 * 60

type Config struct {
	DefaultTTLSeconds int64
	// Enabled turns expiry checks on. When false nothing ever reads as expired.
	Enabled bool
}

// ParseConfig derives a Config from raw environment values. An unparseable or
// non-positive default falls back to DefaultTTLSeconds; expiry is enabled for
// every value except a case-insensitive "false".
func ParseConfig(defaultTTL, enabled string) Config {
	seconds, err := strconv.ParseInt(strings.TrimSpace(defaultTTL), 10, 64)
	if err != nil || seconds <= 0 || seconds > MaxTTLSeconds {
		seconds = DefaultTTLSeconds
	}
	return Config{
		DefaultTTLSeconds: seconds,
		Enabled:           !strings.EqualFold(strings.TrimSpace(enabled), "false"),
	}
}

type Policy struct {
	config Config
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Policy)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		p.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

func NewPolicy(config Config, opts ...Option) *Policy {
	if config.DefaultTTLSeconds <= 0 {
		config.DefaultTTLSeconds = DefaultTTLSeconds
	}

	p := &Policy{config: config, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) Config() Config {
	return p.config
}

// Now returns the current Unix time in seconds.
func (p *Policy) Now() int64 {
	return p.now().Unix()
}

// CalculateExpiration returns now + seconds. A non-positive duration means
// "not specified" and uses the configured default. Durations above
// MaxTTLSeconds are capped.
func (p *Policy) CalculateExpiration(seconds int64) int64 {
	if seconds <= 0 {
		seconds = p.config.DefaultTTLSeconds
	}
	if seconds > MaxTTLSeconds {
		seconds = MaxTTLSeconds
	}
	return p.Now() + seconds
}

// IsExpired reports whether item's ttl lies strictly in the past. Items
// without ttl never expire, and nothing expires while checks are disabled.
func (p *Policy) IsExpired(item store.Item) bool {
	if !p.config.Enabled || !item.HasTTL() {
		return false
	}
	return item.TTL < p.Now()
}

// ParseDuration picks the first valid positive duration out of primary and
// secondary, typically a header and a query parameter. Zero means neither
// was usable and the default applies. Invalid values are logged and skipped.
func (p *Policy) ParseDuration(primary, secondary string) int64 {
	for i, raw := range []string{primary, secondary} {
		if raw == "" {
			continue
		}
		seconds, err := ParsePositive(raw)
		if err == nil && seconds > MaxTTLSeconds {
			err = fmt.Errorf("value %d exceeds the maximum of %d seconds", seconds, MaxTTLSeconds)
		}
		if err != nil {
			p.logger.Warn("ignoring invalid ttl value",
				zap.String("value", raw),
				zap.Int("source", i),
				zap.Error(err))
			continue
		}
		return seconds
	}
	return 0
}

// ParsePositive parses a base 10 integer that must be greater than zero.
func ParsePositive(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %d must be greater than zero", n)
	}
	return n, nil
}
