package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/models"
	"github.com/xaenox/jarvis/internal/responder"
	"github.com/xaenox/jarvis/internal/storage"
)

// populate fills a service with a little of everything.
func populate(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	id, err := svc.GetOrCreateConversation(ctx, "")
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, id, "Plan the quarterly budget review with the finance team")
	require.NoError(t, err)

	_, err = svc.CaptureMemory(ctx, "Vendor invoices are due on the fifth", "finance", nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDailyStats(ctx))
	require.NoError(t, svc.SetSetting(ctx, "theme", "dark"))
}

func collectIDs(export *models.Export) map[string][]string {
	ids := make(map[string][]string)
	for _, c := range export.Conversations {
		ids["conversations"] = append(ids["conversations"], c.ID)
	}
	for _, m := range export.Memories {
		ids["memories"] = append(ids["memories"], m.ID)
	}
	for _, f := range export.Facts {
		ids["facts"] = append(ids["facts"], f.ID)
	}
	for _, s := range export.Stats {
		ids["stats"] = append(ids["stats"], s.ID)
	}
	for _, s := range export.Settings {
		ids["settings"] = append(ids["settings"], s.ID)
	}
	return ids
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestService()
	populate(t, source)

	export, err := source.ExportAll(ctx)
	require.NoError(t, err)
	assert.False(t, export.ExportedAt.IsZero())

	// Import into a fresh, empty store.
	target, _ := newTestService()
	summary, err := target.ImportAll(ctx, export)
	require.NoError(t, err)
	assert.Zero(t, summary.Skipped)

	reExport, err := target.ExportAll(ctx)
	require.NoError(t, err)

	sourceIDs := collectIDs(export)
	targetIDs := collectIDs(reExport)
	for _, collection := range []string{"conversations", "memories", "facts", "stats", "settings"} {
		assert.ElementsMatch(t, sourceIDs[collection], targetIDs[collection], collection)
	}

	// Spot-check record contents survived the trip.
	require.Len(t, reExport.Conversations, 1)
	assert.Equal(t, export.Conversations[0].Title, reExport.Conversations[0].Title)
	assert.Equal(t, export.Conversations[0].Tags, reExport.Conversations[0].Tags)
	require.Len(t, reExport.Memories, 2)
	require.Len(t, reExport.Stats, 4)
}

func TestExportImport_RoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestService()
	populate(t, source)

	export, err := source.ExportAll(ctx)
	require.NoError(t, err)

	sqliteStore, err := storage.NewSQLiteStorage(t.TempDir())
	require.NoError(t, err)
	defer sqliteStore.Close()
	target := New(sqliteStore, responder.NewLocalResponder(), Config{}, zap.NewNop())

	_, err = target.ImportAll(ctx, export)
	require.NoError(t, err)

	reExport, err := target.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, collectIDs(export), collectIDs(reExport))
}

func TestImportAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestService()
	populate(t, source)

	export, err := source.ExportAll(ctx)
	require.NoError(t, err)

	target, _ := newTestService()
	_, err = target.ImportAll(ctx, export)
	require.NoError(t, err)
	afterFirst, err := target.ExportAll(ctx)
	require.NoError(t, err)

	// A second import of the same payload overwrites by id; state is
	// unchanged.
	_, err = target.ImportAll(ctx, export)
	require.NoError(t, err)
	afterSecond, err := target.ExportAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, collectIDs(afterFirst), collectIDs(afterSecond))
	assert.Len(t, afterSecond.Conversations, len(export.Conversations))
	assert.Len(t, afterSecond.Memories, len(export.Memories))
	assert.Len(t, afterSecond.Stats, len(export.Stats))
}

func TestImportAll_SkipsRecordsWithoutIDs(t *testing.T) {
	ctx := context.Background()
	target, store := newTestService()

	summary, err := target.ImportAll(ctx, &models.Export{
		Memories: []*models.Memory{
			{ID: "", Content: "malformed"},
			{ID: "ok", Content: "well formed", SearchableContent: "well formed"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	mems, err := store.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, "ok", mems[0].ID)
}
