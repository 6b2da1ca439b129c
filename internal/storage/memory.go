package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/xaenox/jarvis/internal/models"
)

// MemoryStorage keeps all five collections in process memory. Used for tests
// and the use_in_memory configuration; records are copied on the way in and
// out so callers never alias stored state.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	memories      map[string]*models.Memory
	facts         map[string]*models.Fact
	stats         map[string]*models.Stat
	settings      map[string]*models.Setting
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*models.Conversation),
		memories:      make(map[string]*models.Memory),
		facts:         make(map[string]*models.Fact),
		stats:         make(map[string]*models.Stat),
		settings:      make(map[string]*models.Setting),
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyMetadata(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyConversation(c *models.Conversation) *models.Conversation {
	out := *c
	if c.Messages != nil {
		out.Messages = make([]models.Message, len(c.Messages))
		copy(out.Messages, c.Messages)
		for i := range out.Messages {
			out.Messages[i].Metadata = copyMetadata(c.Messages[i].Metadata)
		}
	}
	out.Tags = copyStrings(c.Tags)
	out.Metadata = copyMetadata(c.Metadata)
	return &out
}

func copyMemory(m *models.Memory) *models.Memory {
	out := *m
	out.Tags = copyStrings(m.Tags)
	out.Metadata = copyMetadata(m.Metadata)
	return &out
}

func copyFact(f *models.Fact) *models.Fact {
	out := *f
	out.Metadata = copyMetadata(f.Metadata)
	return &out
}

func copyStat(s *models.Stat) *models.Stat {
	out := *s
	out.Metadata = copyMetadata(s.Metadata)
	return &out
}

func copySetting(s *models.Setting) *models.Setting {
	out := *s
	if s.Value != nil {
		out.Value = append([]byte(nil), s.Value...)
	}
	return &out
}

func (s *MemoryStorage) PutConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = copyConversation(conv)
	return nil
}

func (s *MemoryStorage) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conv, exists := s.conversations[id]; exists {
		return copyConversation(conv), nil
	}
	return nil, nil
}

func (s *MemoryStorage) ListConversations(_ context.Context) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convs := make([]*models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, copyConversation(conv))
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *MemoryStorage) ListConversationsByCategory(ctx context.Context, category string) ([]*models.Conversation, error) {
	all, err := s.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	var convs []*models.Conversation
	for _, conv := range all {
		if conv.Category == category {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

func (s *MemoryStorage) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStorage) ClearConversations(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*models.Conversation)
	return nil
}

func (s *MemoryStorage) PutMemory(_ context.Context, mem *models.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[mem.ID] = copyMemory(mem)
	return nil
}

func (s *MemoryStorage) GetMemory(_ context.Context, id string) (*models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mem, exists := s.memories[id]; exists {
		return copyMemory(mem), nil
	}
	return nil, nil
}

func (s *MemoryStorage) ListMemories(_ context.Context) ([]*models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mems := make([]*models.Memory, 0, len(s.memories))
	for _, mem := range s.memories {
		mems = append(mems, copyMemory(mem))
	}
	sort.Slice(mems, func(i, j int) bool {
		return mems[i].Timestamp.After(mems[j].Timestamp)
	})
	return mems, nil
}

func (s *MemoryStorage) ListMemoriesByCategory(ctx context.Context, category string) ([]*models.Memory, error) {
	all, err := s.ListMemories(ctx)
	if err != nil {
		return nil, err
	}
	var mems []*models.Memory
	for _, mem := range all {
		if mem.Category == category {
			mems = append(mems, mem)
		}
	}
	return mems, nil
}

func (s *MemoryStorage) DeleteMemory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}

func (s *MemoryStorage) ClearMemories(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = make(map[string]*models.Memory)
	return nil
}

func (s *MemoryStorage) PutFact(_ context.Context, fact *models.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[fact.ID] = copyFact(fact)
	return nil
}

func (s *MemoryStorage) GetFact(_ context.Context, id string) (*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fact, exists := s.facts[id]; exists {
		return copyFact(fact), nil
	}
	return nil, nil
}

func (s *MemoryStorage) ListFacts(_ context.Context) ([]*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := make([]*models.Fact, 0, len(s.facts))
	for _, fact := range s.facts {
		facts = append(facts, copyFact(fact))
	}
	sort.Slice(facts, func(i, j int) bool {
		return facts[i].Timestamp.After(facts[j].Timestamp)
	})
	return facts, nil
}

func (s *MemoryStorage) DeleteFact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts, id)
	return nil
}

func (s *MemoryStorage) ClearFacts(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = make(map[string]*models.Fact)
	return nil
}

func (s *MemoryStorage) PutStat(_ context.Context, stat *models.Stat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stat.ID] = copyStat(stat)
	return nil
}

func (s *MemoryStorage) GetStat(_ context.Context, id string) (*models.Stat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if stat, exists := s.stats[id]; exists {
		return copyStat(stat), nil
	}
	return nil, nil
}

func (s *MemoryStorage) ListStats(_ context.Context) ([]*models.Stat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make([]*models.Stat, 0, len(s.stats))
	for _, stat := range s.stats {
		stats = append(stats, copyStat(stat))
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Date != stats[j].Date {
			return stats[i].Date < stats[j].Date
		}
		return stats[i].MetricName < stats[j].MetricName
	})
	return stats, nil
}

func (s *MemoryStorage) ClearStats(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = make(map[string]*models.Stat)
	return nil
}

func (s *MemoryStorage) PutSetting(_ context.Context, setting *models.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[setting.Key] = copySetting(setting)
	return nil
}

func (s *MemoryStorage) GetSetting(_ context.Context, key string) (*models.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if setting, exists := s.settings[key]; exists {
		return copySetting(setting), nil
	}
	return nil, nil
}

func (s *MemoryStorage) ListSettings(_ context.Context) ([]*models.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := make([]*models.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		settings = append(settings, copySetting(setting))
	}
	sort.Slice(settings, func(i, j int) bool {
		return settings[i].Key < settings[j].Key
	})
	return settings, nil
}

func (s *MemoryStorage) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, key)
	return nil
}

func (s *MemoryStorage) ClearSettings(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = make(map[string]*models.Setting)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
