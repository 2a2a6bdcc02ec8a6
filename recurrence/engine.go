package recurrence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"
)

// Engine wraps the pure projection functions with preview sizing, an optional
// cache and logging. It is safe for concurrent use.
type Engine struct {
	cache  *PreviewCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Validate checks a rule spec, logging rejected specs at debug level
func (e *Engine) Validate(spec Spec) mo.Result[Rule] {
	result := Validate(spec)
	if result.IsError() {
		e.logger.Debug("rejected recurrence rule",
			slog.String("frequency", string(spec.Frequency)),
			slog.Int("interval", spec.Interval),
			slog.Any("error", result.Error()))
	}
	return result
}

// Preview returns up to maxCount occurrences strictly after anchor. A
// maxCount of 0 uses DefaultPreviewCount, and anything above MaxPreviewCount is
// clamped.
func (e *Engine) Preview(rule Rule, anchor time.Time, maxCount, alreadyEmitted int) ([]time.Time, error) {
	return e.PreviewSince(rule, anchor, time.Time{}, maxCount, alreadyEmitted)
}

// PreviewSince is Preview for the series anchored at start, listing only the
// occurrences strictly after since. Hosts that keep a series' start and its
// last run use it so clamped occurrences do not shift later ones.
func (e *Engine) PreviewSince(rule Rule, start, since time.Time, maxCount, alreadyEmitted int) ([]time.Time, error) {
	if err := check(rule); err != nil {
		return nil, fmt.Errorf("failed to preview occurrences: %w", err)
	}
	maxCount = e.previewSize(maxCount)
	alreadyEmitted = max(alreadyEmitted, 0)

	key := cacheKey(rule, start, since, maxCount, alreadyEmitted)
	if e.cache != nil {
		if cached, ok := e.cache.get(key); ok {
			return cached, nil
		}
	}

	occurrences, err := NextOccurrencesSince(rule, start, since, maxCount, alreadyEmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to preview occurrences: %w", err)
	}

	if e.cache != nil {
		e.cache.set(key, occurrences)
	}
	e.logger.Debug("projected occurrences",
		slog.String("rule", rule.String()),
		slog.Time("anchor", start),
		slog.Time("since", since),
		slog.Int("count", len(occurrences)))
	return occurrences, nil
}

// NextRun returns the first occurrence strictly after anchor. ok is false when
// the series has ended.
func (e *Engine) NextRun(rule Rule, anchor time.Time, alreadyEmitted int) (next time.Time, ok bool, err error) {
	return e.NextRunSince(rule, anchor, time.Time{}, alreadyEmitted)
}

// NextRunSince returns the first occurrence of the series anchored at start
// that is strictly after since
func (e *Engine) NextRunSince(rule Rule, start, since time.Time, alreadyEmitted int) (next time.Time, ok bool, err error) {
	occurrences, err := NextOccurrencesSince(rule, start, since, 1, alreadyEmitted)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(occurrences) == 0 {
		return time.Time{}, false, nil
	}
	return occurrences[0], true, nil
}

// IsTerminal reports whether occurrence is the series' last one. See the
// package level IsTerminal for the anchoring caveat.
func (e *Engine) IsTerminal(rule Rule, occurrence time.Time, occurrenceIndex int) bool {
	return IsTerminal(rule, occurrence, occurrenceIndex)
}

// IsTerminalSince reports whether occurrence is the last one of the series
// anchored at start
func (e *Engine) IsTerminalSince(rule Rule, start, occurrence time.Time, occurrenceIndex int) bool {
	return IsTerminalSince(rule, start, occurrence, occurrenceIndex)
}

func (e *Engine) previewSize(n int) int {
	if n <= 0 {
		n = e.config.DefaultPreviewCount
	}
	if e.config.MaxPreviewCount > 0 && n > e.config.MaxPreviewCount {
		n = e.config.MaxPreviewCount
	}
	return n
}

// CacheStats returns preview cache statistics; zero when caching is disabled
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Close releases the preview cache
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
