package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/classifier"
	"github.com/xaenox/jarvis/internal/models"
)

// trivialContentLength is the character count at or below which content is
// not worth remembering.
const trivialContentLength = 20

// CaptureMemory persists content as a searchable memory. Trivial content
// (too short, or a greeting) is skipped silently and nil is returned; the
// skip is a no-op, not an error.
func (s *Service) CaptureMemory(ctx context.Context, content, category string, metadata map[string]any) (*models.Memory, error) {
	if isTrivial(content) {
		return nil, nil
	}
	if category == "" {
		category = models.CategoryGeneral
	}

	mem := &models.Memory{
		ID:                uuid.New().String(),
		Content:           content,
		Category:          category,
		Timestamp:         time.Now().UTC(),
		Tags:              classifier.MemoryTags(content, s.cfg.MemoryTags),
		SearchableContent: strings.ToLower(content),
		RelevanceScore:    1.0,
		Metadata:          metadata,
	}
	if err := s.store.PutMemory(ctx, mem); err != nil {
		return nil, fmt.Errorf("saving memory: %w", err)
	}

	s.logger.Debug("Captured memory",
		zap.String("memory_id", mem.ID),
		zap.String("category", category))
	return mem, nil
}

func isTrivial(content string) bool {
	if utf8.RuneCountInString(content) <= trivialContentLength {
		return true
	}
	lowered := strings.ToLower(content)
	return strings.HasPrefix(lowered, "hi") || strings.HasPrefix(lowered, "hello")
}

// ListMemories returns the most recent memories, up to limit (no limit when
// limit <= 0).
func (s *Service) ListMemories(ctx context.Context, limit int) ([]*models.Memory, error) {
	mems, err := s.store.ListMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	if limit > 0 && len(mems) > limit {
		mems = mems[:limit]
	}
	return mems, nil
}
