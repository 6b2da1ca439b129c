package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/models"
)

// ImportSummary reports what ImportAll did. Skipped counts records rejected
// for having no id; they would otherwise be unreadable rows.
type ImportSummary struct {
	Imported int
	Skipped  int
}

// ExportAll snapshots all five collections. The result round-trips through
// ImportAll: importing it into an empty store reproduces an equivalent store.
func (s *Service) ExportAll(ctx context.Context) (*models.Export, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting conversations: %w", err)
	}
	mems, err := s.store.ListMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting memories: %w", err)
	}
	facts, err := s.store.ListFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting facts: %w", err)
	}
	stats, err := s.store.ListStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting stats: %w", err)
	}
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}

	return &models.Export{
		Conversations: convs,
		Memories:      mems,
		Facts:         facts,
		Stats:         stats,
		Settings:      settings,
		ExportedAt:    time.Now().UTC(),
	}, nil
}

// ImportAll writes every record in data into the store, overwriting by id
// (last-write-wins merge). Importing the same export twice is idempotent.
func (s *Service) ImportAll(ctx context.Context, data *models.Export) (*ImportSummary, error) {
	summary := &ImportSummary{}

	for _, conv := range data.Conversations {
		if conv.ID == "" {
			summary.Skipped++
			continue
		}
		if err := s.store.PutConversation(ctx, conv); err != nil {
			return summary, fmt.Errorf("importing conversation %s: %w", conv.ID, err)
		}
		summary.Imported++
	}
	for _, mem := range data.Memories {
		if mem.ID == "" {
			summary.Skipped++
			continue
		}
		if err := s.store.PutMemory(ctx, mem); err != nil {
			return summary, fmt.Errorf("importing memory %s: %w", mem.ID, err)
		}
		summary.Imported++
	}
	for _, fact := range data.Facts {
		if fact.ID == "" {
			summary.Skipped++
			continue
		}
		if err := s.store.PutFact(ctx, fact); err != nil {
			return summary, fmt.Errorf("importing fact %s: %w", fact.ID, err)
		}
		summary.Imported++
	}
	for _, stat := range data.Stats {
		if stat.ID == "" {
			summary.Skipped++
			continue
		}
		if err := s.store.PutStat(ctx, stat); err != nil {
			return summary, fmt.Errorf("importing stat %s: %w", stat.ID, err)
		}
		summary.Imported++
	}
	for _, setting := range data.Settings {
		if setting.ID == "" {
			summary.Skipped++
			continue
		}
		if err := s.store.PutSetting(ctx, setting); err != nil {
			return summary, fmt.Errorf("importing setting %s: %w", setting.ID, err)
		}
		summary.Imported++
	}

	s.logger.Info("Imported data",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}
