package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/classifier"
	"github.com/xaenox/jarvis/internal/models"
	"github.com/xaenox/jarvis/internal/responder"
	"github.com/xaenox/jarvis/internal/storage"
)

const (
	titleLimit   = 50
	defaultTitle = "New Conversation"

	defaultSearchLimit = 10
	defaultMaxTags     = 3
	defaultMemoryTags  = 5
)

// Config tunes the assistant's tag-derivation and search knobs. Zero values
// fall back to the defaults above.
type Config struct {
	SearchLimit int
	MaxTags     int
	MemoryTags  int
}

func (c Config) withDefaults() Config {
	if c.SearchLimit <= 0 {
		c.SearchLimit = defaultSearchLimit
	}
	if c.MaxTags <= 0 {
		c.MaxTags = defaultMaxTags
	}
	if c.MemoryTags <= 0 {
		c.MemoryTags = defaultMemoryTags
	}
	return c
}

// ErrConversationNotFound indicates AppendTurn was handed an id that does
// not resolve. After GetOrCreateConversation this is an internal defect, not
// a user-facing condition.
var ErrConversationNotFound = errors.New("conversation not found")

// Service implements the assistant domain operations on top of a Storage
// backend and a response collaborator.
type Service struct {
	store     storage.Storage
	responder responder.Responder
	cfg       Config
	logger    *zap.Logger
}

func New(store storage.Storage, resp responder.Responder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		responder: resp,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// SearchLimit returns the configured default result limit for frontends.
func (s *Service) SearchLimit() int {
	return s.cfg.SearchLimit
}

// GetOrCreateConversation returns an existing conversation id unchanged or
// creates and persists a fresh empty conversation.
func (s *Service) GetOrCreateConversation(ctx context.Context, id string) (string, error) {
	if id != "" {
		conv, err := s.store.GetConversation(ctx, id)
		if err != nil {
			return "", fmt.Errorf("loading conversation %s: %w", id, err)
		}
		if conv != nil {
			return conv.ID, nil
		}
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		Title:     defaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      []string{},
		Category:  models.CategoryGeneral,
	}
	if err := s.store.PutConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Info("Created conversation", zap.String("conversation_id", conv.ID))
	return conv.ID, nil
}

// AppendTurn records one full exchange: the user message, the assistant
// reply, and the derived title/category/tag updates, persisted as a single
// put. The user text is also captured as a memory. Callers must not run two
// AppendTurn calls concurrently against the same conversation.
func (s *Service) AppendTurn(ctx context.Context, conversationID, userText string) (string, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if conv == nil {
		return "", fmt.Errorf("appending turn to %s: %w", conversationID, ErrConversationNotFound)
	}

	firstUserMessage := true
	for _, msg := range conv.Messages {
		if msg.Role == models.RoleUser {
			firstUserMessage = false
			break
		}
	}

	now := time.Now().UTC()
	conv.Messages = append(conv.Messages, models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   userText,
		Timestamp: now,
	})

	reply, err := s.responder.Respond(ctx, conversationID, userText)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	conv.Messages = append(conv.Messages, models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})

	if firstUserMessage {
		conv.Title = deriveTitle(userText)
	}
	conv.Category = classifier.Categorize(conv.Category, userText)
	conv.Tags = classifier.MergeTags(conv.Tags, classifier.ExtractTags(userText, s.cfg.MaxTags))
	conv.UpdatedAt = now

	if err := s.store.PutConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("saving conversation %s: %w", conversationID, err)
	}

	// Capture the user's text as a standalone memory, loosely correlated via
	// metadata rather than a foreign key. A storage failure here surfaces to
	// the caller like any other; the conversation put above has already
	// succeeded, so the wrap says which write failed.
	if _, err := s.CaptureMemory(ctx, userText, models.CategoryGeneral, map[string]any{
		"conversation_id": conversationID,
		"timestamp":       now.Format(time.RFC3339),
	}); err != nil {
		return "", fmt.Errorf("capturing memory for conversation %s (conversation saved): %w", conversationID, err)
	}

	return reply, nil
}

// deriveTitle truncates the first user message to the title limit.
func deriveTitle(userText string) string {
	runes := []rune(userText)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "…"
	}
	return userText
}

// GetConversation returns a conversation or nil when it does not exist.
func (s *Service) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// ListConversations returns the most recently updated conversations, up to
// limit (no limit when limit <= 0).
func (s *Service) ListConversations(ctx context.Context, limit int) ([]*models.Conversation, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	if limit > 0 && len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

// DeleteConversation removes a conversation. Memories captured during its
// turns are independent records and remain.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	s.logger.Info("Deleted conversation", zap.String("conversation_id", id))
	return nil
}
