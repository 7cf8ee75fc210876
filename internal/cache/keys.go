package cache

import (
	"fmt"
	"strings"
	"time"

	"backtestcore/internal/config"
)

// Namespace is the cache key prefix for the backtester application.
const Namespace = "backtestcore"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Historical bar cache keys ----------------------------------------------

// BarRangeKey identifies a cached slice of bars for one ticker, frequency,
// and [start, end] UTC-second window. The datafeed read-through cache stores
// the msgpack-encoded []bar.Bar payload under this key.
func BarRangeKey(ticker, frequency string, startUTC, endUTC int64) string {
	return formatKey("bars", ticker, frequency, fmt.Sprintf("%d-%d", startUTC, endUTC))
}

// ExistingTimestampsKey caches the sorted timestamp set used for gap
// discovery, keyed separately from the bar payload itself so gap lookups
// don't pay for decoding full OHLCV rows.
func ExistingTimestampsKey(ticker, frequency string, startUTC, endUTC int64) string {
	return formatKey("bars", "ts", ticker, frequency, fmt.Sprintf("%d-%d", startUTC, endUTC))
}

// GapLockKey guards a single ticker/frequency pair against concurrent
// backfill of the same range from two overlapping GetHistoricalData calls.
func GapLockKey(ticker, frequency string) string {
	return formatKey("lock", "backfill", ticker, frequency)
}

// --- TTL helpers -------------------------------------------------------------

// BarRangeTTL returns the TTL for a cached bar range. Historical bars at a
// closed timestamp never change, so a long TTL is safe; it only bounds
// staleness of the go-zero cache layer, not the underlying persistent
// store.
func BarRangeTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// ExistingTimestampsTTL returns the TTL for the cached gap-discovery index.
func ExistingTimestampsTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// GapLockTTL returns the TTL for the backfill lock, short enough that a
// crashed backfill doesn't wedge the ticker/frequency pair for long.
func GapLockTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// FormatCacheKey is exported for dynamic key construction when patterns are
// not covered by the helpers above.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}

// BuildKeyWithSuffix appends an arbitrary suffix to an existing key.
func BuildKeyWithSuffix(baseKey, suffix string) string {
	if strings.TrimSpace(suffix) == "" {
		return baseKey
	}
	return fmt.Sprintf("%s:%s", baseKey, strings.TrimSpace(suffix))
}
