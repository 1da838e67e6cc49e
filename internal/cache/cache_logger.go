package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuestionCache invalidates all caches touched by a question write.
// Sibling rows share the fingerprint, so fingerprint-level entries go too.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint, fingerprint string) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("fp:%s*", fingerprint))
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("fp:%s*", fingerprint))
}

// InvalidateUsageCache invalidates usage summaries for a fingerprint
func InvalidateUsageCache(ctx context.Context, cm *CacheManager, fingerprint string) {
	SafeInvalidatePattern(ctx, cm.Usage, fmt.Sprintf("fp:%s*", fingerprint))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("fp:%s*", fingerprint))
}
