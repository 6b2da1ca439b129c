package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/assistant"
)

// Bot is the Telegram frontend for the assistant. Each chat is pinned to one
// conversation (tracked through a setting so it survives restarts), and
// message handling is serialized per chat because the domain layer does not
// defend against concurrent turns on the same conversation.
type Bot struct {
	api       *tgbotapi.BotAPI
	assistant *assistant.Service
	limit     int
	logger    *zap.Logger

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func New(token string, svc *assistant.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:       api,
		assistant: svc,
		limit:     svc.SearchLimit(),
		logger:    logger,
		chatLocks: make(map[int64]*sync.Mutex),
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		b.chatLocks[chatID] = lock
	}
	return lock
}

func conversationKey(chatID int64) string {
	return fmt.Sprintf("chat-conversation:%d", chatID)
}

// conversationFor resolves (creating if needed) the conversation pinned to a
// chat.
func (b *Bot) conversationFor(ctx context.Context, chatID int64) (string, error) {
	var saved string
	found, err := b.assistant.GetSetting(ctx, conversationKey(chatID), &saved)
	if err != nil {
		return "", err
	}
	if !found {
		saved = ""
	}

	id, err := b.assistant.GetOrCreateConversation(ctx, saved)
	if err != nil {
		return "", err
	}
	if id != saved {
		if err := b.assistant.SetSetting(ctx, conversationKey(chatID), id); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if content == "" {
		return
	}

	lock := b.chatLock(message.Chat.ID)
	lock.Lock()
	defer lock.Unlock()

	conversationID, err := b.conversationFor(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to resolve conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}

	reply, err := b.assistant.AppendTurn(ctx, conversationID, content)
	if err != nil {
		b.logger.Error("Failed to append turn",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't process your message. Please try again.")
		return
	}

	b.sendMessage(message.Chat.ID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "new":
		b.handleNew(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	case "memories":
		b.handleMemories(ctx, message)
	case "history":
		b.handleHistory(ctx, message)
	case "stats":
		b.handleStats(ctx, message)
	case "export":
		b.handleExport(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Jarvis! 🤖
I'm your personal assistant with a local memory.

Just send me a message and I'll answer, remember what you told me, and file
the conversation under a category with tags.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the assistant
/help - Show this help message
/new - Start a fresh conversation
/search <query> - Search conversations
/memories <query> - Search saved memories
/history - Show recent conversations
/stats - Show usage statistics
/export - Download all data as JSON

Anything else you send becomes a turn in the current conversation.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleNew(ctx context.Context, message *tgbotapi.Message) {
	lock := b.chatLock(message.Chat.ID)
	lock.Lock()
	defer lock.Unlock()

	id, err := b.assistant.GetOrCreateConversation(ctx, "")
	if err != nil {
		b.logger.Error("Failed to create conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't start a new conversation.")
		return
	}
	if err := b.assistant.SetSetting(ctx, conversationKey(message.Chat.ID), id); err != nil {
		b.logger.Error("Failed to pin conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't start a new conversation.")
		return
	}

	b.sendMessage(message.Chat.ID, "Started a fresh conversation. What's on your mind?")
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		b.sendMessage(message.Chat.ID, "Usage: /search <query>")
		return
	}

	convs, err := b.assistant.SearchConversations(ctx, query, b.limit)
	if err != nil {
		b.logger.Error("Failed to search conversations",
			zap.Error(err),
			zap.String("query", query))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the search failed. Please try again.")
		return
	}
	if len(convs) == 0 {
		b.sendMessage(message.Chat.ID, "No conversations matched your query.")
		return
	}

	response := "*Matching conversations:*\n\n"
	for _, conv := range convs {
		response += fmt.Sprintf("*%s*\n", escapeMarkdown(conv.Title))
		response += fmt.Sprintf("_%s, %d messages_\n", escapeMarkdown(conv.Category), len(conv.Messages))
		if len(conv.Tags) > 0 {
			tags := make([]string, len(conv.Tags))
			for i, tag := range conv.Tags {
				tags[i] = "#" + escapeMarkdown(strings.ReplaceAll(tag, " ", "_"))
			}
			response += fmt.Sprintf("Tags: %s\n", strings.Join(tags, " "))
		}
		response += "\n"
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleMemories(ctx context.Context, message *tgbotapi.Message) {
	query := strings.TrimSpace(message.CommandArguments())

	mems, err := b.assistant.SearchMemories(ctx, query, b.limit)
	if err != nil {
		b.logger.Error("Failed to search memories",
			zap.Error(err),
			zap.String("query", query))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the search failed. Please try again.")
		return
	}
	if len(mems) == 0 {
		b.sendMessage(message.Chat.ID, "No memories matched your query.")
		return
	}

	response := "*Your memories:*\n\n"
	for _, mem := range mems {
		response += fmt.Sprintf("_%s_\n", escapeMarkdown(mem.Content))
		if len(mem.Tags) > 0 {
			tags := make([]string, len(mem.Tags))
			for i, tag := range mem.Tags {
				tags[i] = "#" + escapeMarkdown(strings.ReplaceAll(tag, " ", "_"))
			}
			response += fmt.Sprintf("Tags: %s\n", strings.Join(tags, " "))
		}
		response += "\n"
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	convs, err := b.assistant.ListConversations(ctx, b.limit)
	if err != nil {
		b.logger.Error("Failed to list conversations", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your conversations.")
		return
	}
	if len(convs) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any conversations yet.")
		return
	}

	response := "*Your recent conversations:*\n\n"
	for _, conv := range convs {
		response += fmt.Sprintf("*%s*\n", escapeMarkdown(conv.Title))
		response += fmt.Sprintf("_%s, %d messages_\n\n", escapeMarkdown(conv.Category), len(conv.Messages))
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	if err := b.assistant.UpdateDailyStats(ctx); err != nil {
		b.logger.Error("Failed to update stats", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't compute your statistics.")
		return
	}

	stats, err := b.assistant.ListStats(ctx)
	if err != nil {
		b.logger.Error("Failed to list stats", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your statistics.")
		return
	}
	if len(stats) == 0 {
		b.sendMessage(message.Chat.ID, "No statistics recorded yet.")
		return
	}

	response := "*Usage statistics:*\n\n"
	for _, stat := range stats {
		response += fmt.Sprintf("%s \\(%s\\): %s\n",
			escapeMarkdown(stat.MetricName),
			escapeMarkdown(stat.Date),
			escapeMarkdown(fmt.Sprintf("%.0f", stat.Value)))
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleExport(ctx context.Context, message *tgbotapi.Message) {
	export, err := b.assistant.ExportAll(ctx)
	if err != nil {
		b.logger.Error("Failed to export data", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the export failed. Please try again.")
		return
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		b.logger.Error("Failed to encode export", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the export failed. Please try again.")
		return
	}

	doc := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{
		Name:  "jarvis-export.json",
		Bytes: data,
	})
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("Failed to send export document",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
