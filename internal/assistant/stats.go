package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/models"
)

const (
	MetricDailyConversations = "daily_conversations"
	MetricTotalConversations = "total_conversations"
	MetricTotalMessages      = "total_messages"
	MetricTotalMemories      = "total_memories"
)

// dateFormat is day granularity, matching Stat.Date.
const dateFormat = "2006-01-02"

// UpdateDailyStats recomputes today's four metric rows from scratch and
// overwrites them. Re-running on the same day is idempotent; values are
// never incremented.
func (s *Service) UpdateDailyStats(ctx context.Context) error {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}
	mems, err := s.store.ListMemories(ctx)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}

	now := time.Now().UTC()
	today := now.Format(dateFormat)

	var createdToday, totalMessages int
	for _, conv := range convs {
		if conv.CreatedAt.UTC().Format(dateFormat) == today {
			createdToday++
		}
		totalMessages += len(conv.Messages)
	}

	metrics := map[string]float64{
		MetricDailyConversations: float64(createdToday),
		MetricTotalConversations: float64(len(convs)),
		MetricTotalMessages:      float64(totalMessages),
		MetricTotalMemories:      float64(len(mems)),
	}
	for name, value := range metrics {
		stat := &models.Stat{
			ID:         models.StatID(name, today),
			MetricName: name,
			Value:      value,
			Date:       today,
		}
		if err := s.store.PutStat(ctx, stat); err != nil {
			return fmt.Errorf("saving stat %s: %w", stat.ID, err)
		}
	}

	s.logger.Info("Updated daily stats",
		zap.String("date", today),
		zap.Int("daily_conversations", createdToday),
		zap.Int("total_conversations", len(convs)),
		zap.Int("total_messages", totalMessages),
		zap.Int("total_memories", len(mems)))
	return nil
}

// ListStats returns all stat rows ordered by date then metric.
func (s *Service) ListStats(ctx context.Context) ([]*models.Stat, error) {
	return s.store.ListStats(ctx)
}
