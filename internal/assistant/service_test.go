package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/models"
	"github.com/xaenox/jarvis/internal/responder"
	"github.com/xaenox/jarvis/internal/storage"
)

func newTestService() (*Service, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	return New(store, responder.NewLocalResponder(), Config{}, zap.NewNop()), store
}

func TestGetOrCreateConversation_NewConversation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "New Conversation", conv.Title)
	assert.Equal(t, models.CategoryGeneral, conv.Category)
	assert.Empty(t, conv.Messages)
	assert.Empty(t, conv.Tags)
}

func TestGetOrCreateConversation_ExistingIDUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	same, err := svc.GetOrCreateConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, same)
}

func TestGetOrCreateConversation_UnknownIDCreatesFresh(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", id)
}

func TestAppendTurn_MissingConversationFailsLoudly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.AppendTurn(ctx, "nope", "some user text here")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAppendTurn_RecordsBothMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	reply, err := svc.AppendTurn(ctx, id, "Please review the staffing budget for next quarter")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, models.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, reply, conv.Messages[1].Content)
}

func TestAppendTurn_TitleDerivation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	long := "Plan the Q3 roadmap for the new product launch and make sure we cover budget, staffing"
	_, err = svc.AppendTurn(ctx, id, long)
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string([]rune(long)[:50])+"…", conv.Title)

	// A later turn must not retitle the conversation.
	_, err = svc.AppendTurn(ctx, id, "Also add the marketing spend to the same plan")
	require.NoError(t, err)
	conv, err = svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string([]rune(long)[:50])+"…", conv.Title)
}

func TestAppendTurn_ShortTitleKeptWhole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	_, err = svc.AppendTurn(ctx, id, "Review the vendor contract")
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Review the vendor contract", conv.Title)
	assert.False(t, strings.HasSuffix(conv.Title, "…"))
}

func TestAppendTurn_CategoryStickiness(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	// None of these turns contain a category keyword.
	for _, text := range []string{
		"good morning, nothing urgent today at work",
		"lunch at noon works well for everyone involved",
		"thanks again, talk tomorrow about the rest",
	} {
		_, err = svc.AppendTurn(ctx, id, text)
		require.NoError(t, err)
	}

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryGeneral, conv.Category)
}

func TestAppendTurn_Reclassifies(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	_, err = svc.AppendTurn(ctx, id, "The server keeps throwing a database error")
	require.NoError(t, err)
	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTechnical, conv.Category)

	// Last classification wins; the category is overwritten, not accumulated.
	_, err = svc.AppendTurn(ctx, id, "Let's schedule the rollout milestone for Monday")
	require.NoError(t, err)
	conv, err = svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPlanning, conv.Category)
}

func TestAppendTurn_TagCapPerTurn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	// Ten distinct significant words, none in the stoplist.
	_, err = svc.AppendTurn(ctx, id, "alpha bravo charlie delta echo foxtrot golf hotel india juliet")
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Len(t, conv.Tags, 3)
}

func TestAppendTurn_TagsAccumulateAcrossTurns(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	_, err = svc.AppendTurn(ctx, id, "budget review staffing")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, id, "budget vendors logistics")
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"budget", "review", "staffing", "vendors", "logistics"}, conv.Tags)
}

func TestAppendTurn_CapturesMemory(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	_, err = svc.AppendTurn(ctx, id, "Remember that the quarterly budget review moved to Thursday")
	require.NoError(t, err)

	mems, err := store.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, id, mems[0].Metadata["conversation_id"])
}

func TestCaptureMemory_TrivialRejection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	for _, content := range []string{
		"hello",
		"hi there",
		"ok",
		"hello, could you summarize yesterday's standup notes", // greeting prefix, long
	} {
		mem, err := svc.CaptureMemory(ctx, content, "", nil)
		require.NoError(t, err)
		assert.Nil(t, mem, "content %q should be skipped", content)
	}

	mem, err := svc.CaptureMemory(ctx, "Let's discuss the quarterly budget allocation", "", nil)
	require.NoError(t, err)
	require.NotNil(t, mem)

	mems, err := store.ListMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, mems, 1)
}

func TestCaptureMemory_Fields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	mem, err := svc.CaptureMemory(ctx, "The Quarterly Budget Review moved to Thursday", "", nil)
	require.NoError(t, err)
	require.NotNil(t, mem)

	assert.Equal(t, models.CategoryGeneral, mem.Category)
	assert.Equal(t, strings.ToLower(mem.Content), mem.SearchableContent)
	assert.Equal(t, 1.0, mem.RelevanceScore)
	// First five significant words, stoplist not applied.
	assert.Equal(t, []string{"quarterly", "budget", "review", "moved", "thursday"}, mem.Tags)
}

func TestSearchMemories_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.CaptureMemory(ctx, "Quarterly Budget Review", "", nil)
	require.NoError(t, err)

	for _, query := range []string{"quarterly", "BUDGET", "Review"} {
		results, err := svc.SearchMemories(ctx, query, 10)
		require.NoError(t, err)
		require.Len(t, results, 1, "query %q", query)
		assert.Equal(t, "Quarterly Budget Review", results[0].Content)
	}
}

func TestSearchConversations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	first, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, first, "Review the staffing budget for the launch")
	require.NoError(t, err)

	second, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, second, "Fix the deployment pipeline error")
	require.NoError(t, err)

	results, err := svc.SearchConversations(ctx, "STAFFING", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, first, results[0].ID)

	// Empty query matches everything; documented behavior.
	results, err = svc.SearchConversations(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Limit truncates.
	results, err = svc.SearchConversations(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDeleteConversation_MemoriesSurvive(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, id, "Remember the office closes early on Friday afternoons")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, id))

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, conv)

	mems, err := store.ListMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, mems, 1)
}

func TestUpdateDailyStats_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, id, "Plan the quarterly budget review for the team")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDailyStats(ctx))
	first, err := svc.ListStats(ctx)
	require.NoError(t, err)
	require.Len(t, first, 4)

	// Re-running the same day overwrites the same four rows with the same
	// values; nothing accumulates.
	require.NoError(t, svc.UpdateDailyStats(ctx))
	second, err := svc.ListStats(ctx)
	require.NoError(t, err)
	require.Len(t, second, 4)

	byMetric := make(map[string]float64, len(second))
	for _, stat := range second {
		byMetric[stat.MetricName] = stat.Value
	}
	assert.Equal(t, 1.0, byMetric[MetricDailyConversations])
	assert.Equal(t, 1.0, byMetric[MetricTotalConversations])
	assert.Equal(t, 2.0, byMetric[MetricTotalMessages])
	assert.Equal(t, 1.0, byMetric[MetricTotalMemories])

	for i := range first {
		assert.Equal(t, first[i].Value, second[i].Value)
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	require.NoError(t, svc.SetSetting(ctx, "theme", "dark"))
	require.NoError(t, svc.SetSetting(ctx, "theme", "light"))

	var theme string
	found, err := svc.GetSetting(ctx, "theme", &theme)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "light", theme)

	found, err = svc.GetSetting(ctx, "missing", &theme)
	require.NoError(t, err)
	assert.False(t, found)
}

// memoryFailingStore makes PutMemory fail on demand so turn handling can be
// exercised against a storage layer that goes bad mid-turn.
type memoryFailingStore struct {
	*storage.MemoryStorage
	putMemoryErr error
}

func (s *memoryFailingStore) PutMemory(ctx context.Context, mem *models.Memory) error {
	if s.putMemoryErr != nil {
		return s.putMemoryErr
	}
	return s.MemoryStorage.PutMemory(ctx, mem)
}

func TestAppendTurn_MemoryWriteFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	store := &memoryFailingStore{MemoryStorage: storage.NewMemoryStorage()}
	svc := New(store, responder.NewLocalResponder(), Config{}, zap.NewNop())

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)

	store.putMemoryErr = errors.New("disk full")
	_, err = svc.AppendTurn(ctx, id, "Remember the quarterly budget review moved to Thursday")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	// The conversation write happens before the memory write, so the turn
	// itself is still on record.
	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Len(t, conv.Messages, 2)
}

func TestConfig_Defaults(t *testing.T) {
	svc, _ := newTestService()
	assert.Equal(t, 10, svc.SearchLimit())

	svc = New(storage.NewMemoryStorage(), responder.NewLocalResponder(), Config{SearchLimit: 7}, zap.NewNop())
	assert.Equal(t, 7, svc.SearchLimit())
}

func TestAppendTurn_ConfiguredTagCap(t *testing.T) {
	ctx := context.Background()
	svc := New(storage.NewMemoryStorage(), responder.NewLocalResponder(), Config{MaxTags: 2}, zap.NewNop())

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, id, "alpha bravo charlie delta echo foxtrot")
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, conv.Tags)
}

func TestCaptureMemory_ConfiguredTagCount(t *testing.T) {
	ctx := context.Background()
	svc := New(storage.NewMemoryStorage(), responder.NewLocalResponder(), Config{MemoryTags: 2}, zap.NewNop())

	mem, err := svc.CaptureMemory(ctx, "quarterly budget review moved thursday", "", nil)
	require.NoError(t, err)
	require.NotNil(t, mem)
	assert.Equal(t, []string{"quarterly", "budget"}, mem.Tags)
}

func TestCaptureMemory_TrivialLengthCountsCharacters(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	// 18 characters but well over 20 bytes; still trivial.
	mem, err := svc.CaptureMemory(ctx, "квартальный бюджет", "", nil)
	require.NoError(t, err)
	assert.Nil(t, mem)

	mem, err = svc.CaptureMemory(ctx, "обсудим бюджет на квартал и найм", "", nil)
	require.NoError(t, err)
	require.NotNil(t, mem)

	mems, err := store.ListMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, mems, 1)
}
