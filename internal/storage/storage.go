package storage

import (
	"context"

	"github.com/xaenox/jarvis/internal/models"
)

// Storage is keyed persistence over the five assistant collections.
//
// Contract shared by all implementations:
//   - Put* is insert-or-replace of the whole record by primary key; there
//     are no partial updates, callers read-modify-write.
//   - Get* returns (nil, nil) when the key does not exist.
//   - Delete* is idempotent; deleting a missing key is not an error.
//   - List* returns the full collection ordered by its natural index
//     (conversations by updated_at desc, memories and facts by timestamp
//     desc, stats by date then metric, settings by key).
//   - Any underlying engine failure propagates to the caller; nothing here
//     retries.
type Storage interface {
	PutConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.Conversation, error)
	ListConversationsByCategory(ctx context.Context, category string) ([]*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ClearConversations(ctx context.Context) error

	PutMemory(ctx context.Context, mem *models.Memory) error
	GetMemory(ctx context.Context, id string) (*models.Memory, error)
	ListMemories(ctx context.Context) ([]*models.Memory, error)
	ListMemoriesByCategory(ctx context.Context, category string) ([]*models.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	ClearMemories(ctx context.Context) error

	PutFact(ctx context.Context, fact *models.Fact) error
	GetFact(ctx context.Context, id string) (*models.Fact, error)
	ListFacts(ctx context.Context) ([]*models.Fact, error)
	DeleteFact(ctx context.Context, id string) error
	ClearFacts(ctx context.Context) error

	PutStat(ctx context.Context, stat *models.Stat) error
	GetStat(ctx context.Context, id string) (*models.Stat, error)
	ListStats(ctx context.Context) ([]*models.Stat, error)
	ClearStats(ctx context.Context) error

	PutSetting(ctx context.Context, setting *models.Setting) error
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	ListSettings(ctx context.Context) ([]*models.Setting, error)
	DeleteSetting(ctx context.Context, key string) error
	ClearSettings(ctx context.Context) error

	Close() error
}
