package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xaenox/jarvis/internal/models"
)

// SearchConversations returns conversations whose title, message content or
// tags contain query (case-insensitive substring), most recently updated
// first. An empty query matches everything; that is the documented behavior,
// callers decide whether to special-case it.
func (s *Service) SearchConversations(ctx context.Context, query string, limit int) ([]*models.Conversation, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching conversations: %w", err)
	}

	lowered := strings.ToLower(query)
	var matches []*models.Conversation
	for _, conv := range convs {
		if conversationMatches(conv, lowered) {
			matches = append(matches, conv)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func conversationMatches(conv *models.Conversation, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(conv.Title), loweredQuery) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), loweredQuery) {
			return true
		}
	}
	for _, tag := range conv.Tags {
		if strings.Contains(strings.ToLower(tag), loweredQuery) {
			return true
		}
	}
	return false
}

// SearchMemories returns memories whose searchable content, content or tags
// contain query (case-insensitive substring), ordered by relevance score
// descending with timestamp descending as the tie-break.
func (s *Service) SearchMemories(ctx context.Context, query string, limit int) ([]*models.Memory, error) {
	mems, err := s.store.ListMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	lowered := strings.ToLower(query)
	var matches []*models.Memory
	for _, mem := range mems {
		if memoryMatches(mem, lowered) {
			matches = append(matches, mem)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].RelevanceScore != matches[j].RelevanceScore {
			return matches[i].RelevanceScore > matches[j].RelevanceScore
		}
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func memoryMatches(mem *models.Memory, loweredQuery string) bool {
	if strings.Contains(mem.SearchableContent, loweredQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(mem.Content), loweredQuery) {
		return true
	}
	for _, tag := range mem.Tags {
		if strings.Contains(strings.ToLower(tag), loweredQuery) {
			return true
		}
	}
	return false
}
