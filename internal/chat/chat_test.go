package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/restodesk/api/internal/cache"
	"github.com/restodesk/api/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	rows      map[database.SnapshotTable][]database.SnapshotRow
	counts    map[database.SnapshotTable]int64
	failTable database.SnapshotTable
	reads     int
}

func (f *fakeSnapshotter) SnapshotRows(_ context.Context, table database.SnapshotTable, _ uuid.UUID, limit int32) ([]database.SnapshotRow, error) {
	f.reads++
	if table == f.failTable {
		return nil, errors.New("relation does not exist")
	}
	rows := f.rows[table]
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeSnapshotter) CountRows(_ context.Context, table database.SnapshotTable, _ uuid.UUID) (int64, error) {
	if table == f.failTable {
		return 0, errors.New("relation does not exist")
	}
	return f.counts[table], nil
}

type fakeCompleter struct {
	reply    string
	err      error
	messages []Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func row(fields ...any) database.SnapshotRow {
	r := make(database.SnapshotRow, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		r = append(r, database.SnapshotField{Name: fields[i].(string), Value: fields[i+1]})
	}
	return r
}

func TestSummarizeRows_Empty(t *testing.T) {
	assert.Equal(t, "No rows found.", SummarizeRows(nil))
}

func TestSummarizeRows_SkipsIgnoredAndBlank(t *testing.T) {
	rows := []database.SnapshotRow{
		row("id", uuid.New(), "name", "Burger", "description", nil, "category", "", "price", 12.5, "restaurant_id", uuid.New(), "is_available", true),
	}
	assert.Equal(t, `1. name: "Burger" | price: 12.5 | is_available: true`, SummarizeRows(rows))
}

func TestSummarizeRows_MaxSixFields(t *testing.T) {
	rows := []database.SnapshotRow{
		row("a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6, "g", 7),
	}
	got := SummarizeRows(rows)
	assert.Equal(t, "1. a: 1 | b: 2 | c: 3 | d: 4 | e: 5 | f: 6", got)
}

func TestSummarizeRows_TruncatesArrays(t *testing.T) {
	rows := []database.SnapshotRow{
		row("tags", []string{"a", "b", "c", "d", "e", "f"}),
		row("tags", []int{1, 2}),
	}
	got := strings.Split(SummarizeRows(rows), "\n")
	require.Len(t, got, 2)
	assert.Equal(t, `1. tags: ["a", "b", "c", "d", "e", ...]`, got[0])
	assert.Equal(t, `2. tags: [1, 2]`, got[1])
}

func TestSummarizeRows_NoHTMLEscaping(t *testing.T) {
	rows := []database.SnapshotRow{row("name", "Fish & Chips")}
	assert.Equal(t, `1. name: "Fish & Chips"`, SummarizeRows(rows))
}

func TestBuildSectionContext_Menu(t *testing.T) {
	src := &fakeSnapshotter{rows: map[database.SnapshotTable][]database.SnapshotRow{
		database.SnapshotMenuItems: {row("name", "Burger")},
	}}
	got := BuildSectionContext(context.Background(), src, uuid.New(), "menu")
	assert.Equal(t, "DATABASE SNAPSHOT - MENU ITEMS\nUse only this data when asked about the menu.\n1. name: \"Burger\"", got)
}

func TestBuildSectionContext_LoadError(t *testing.T) {
	src := &fakeSnapshotter{failTable: database.SnapshotInventory}
	got := BuildSectionContext(context.Background(), src, uuid.New(), "inventory")
	assert.Equal(t, "Database snapshot (inventory): error while loading inventory.", got)
}

func TestBuildSectionContext_Dashboard(t *testing.T) {
	src := &fakeSnapshotter{
		counts:    map[database.SnapshotTable]int64{database.SnapshotOrders: 12, database.SnapshotMenuItems: 4},
		failTable: database.SnapshotStaff,
	}
	got := BuildSectionContext(context.Background(), src, uuid.New(), "dashboard")
	assert.Contains(t, got, "orders: 12")
	assert.Contains(t, got, "menu_items: 4")
	assert.Contains(t, got, "users: error")
}

func TestBuildSectionContext_Overview(t *testing.T) {
	src := &fakeSnapshotter{counts: map[database.SnapshotTable]int64{
		database.SnapshotOrders:    3,
		database.SnapshotMenuItems: 7,
		database.SnapshotInventory: 9,
	}}
	got := BuildSectionContext(context.Background(), src, uuid.New(), "anything")
	assert.True(t, strings.HasPrefix(got, "DATABASE SNAPSHOT - OVERVIEW\nOrders: 3\nMenu items: 7\nInventory items: 9\n"))
}

func TestBuildSectionContext_POS(t *testing.T) {
	src := &fakeSnapshotter{failTable: database.SnapshotMenuItems}
	got := BuildSectionContext(context.Background(), src, uuid.New(), "pos")
	assert.Contains(t, got, "Open / recent orders:\nNo rows found.")
	assert.Contains(t, got, "Error loading menu items for POS.")
}

func TestAssistantReply_MessageShape(t *testing.T) {
	src := &fakeSnapshotter{}
	llm := &fakeCompleter{reply: "  You have 3 orders.  "}
	a := NewAssistant(src, llm, nil)

	got, err := a.Reply(context.Background(), uuid.New(), Request{Message: "How many orders?", Section: "orders", Context: "Orders page"})
	require.NoError(t, err)
	assert.Equal(t, "You have 3 orders.", got)

	require.Len(t, llm.messages, 3)
	assert.Equal(t, RoleSystem, llm.messages[0].Role)
	assert.Equal(t, RoleSystem, llm.messages[1].Role)
	assert.True(t, strings.HasPrefix(llm.messages[1].Content, "DATABASE SNAPSHOT - ORDERS"))
	assert.Equal(t, Message{Role: RoleUser, Content: "How many orders?\n\nAdditional UI context: Orders page"}, llm.messages[2])
}

func TestAssistantReply_BlankContextNotAppended(t *testing.T) {
	llm := &fakeCompleter{reply: "ok"}
	a := NewAssistant(&fakeSnapshotter{}, llm, nil)

	_, err := a.Reply(context.Background(), uuid.New(), Request{Message: "hi", Context: "   "})
	require.NoError(t, err)
	assert.Equal(t, "hi", llm.messages[2].Content)
}

func TestAssistantReply_EmptyCompletion(t *testing.T) {
	a := NewAssistant(&fakeSnapshotter{}, &fakeCompleter{reply: "   "}, nil)

	got, err := a.Reply(context.Background(), uuid.New(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, got)
}

func TestAssistantReply_CompletionError(t *testing.T) {
	a := NewAssistant(&fakeSnapshotter{}, &fakeCompleter{err: errors.New("429 rate limited")}, nil)

	_, err := a.Reply(context.Background(), uuid.New(), Request{Message: "hi"})
	assert.Error(t, err)
}

func TestAssistantReply_SnapshotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	src := &fakeSnapshotter{rows: map[database.SnapshotTable][]database.SnapshotRow{
		database.SnapshotMenuItems: {row("name", "Burger")},
	}}
	a := NewAssistant(src, &fakeCompleter{reply: "ok"}, cache.NewRedisCache(client))
	rid := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := a.Reply(context.Background(), rid, Request{Message: "menu?", Section: "menu"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.reads)

	mr.FastForward(2 * SnapshotTTL)
	_, err := a.Reply(context.Background(), rid, Request{Message: "menu?", Section: "menu"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.reads)
}

type recordingCache struct {
	entries map[string]string
	gets    []string
}

func (c *recordingCache) GetSnapshot(_ context.Context, _ uuid.UUID, section string) (string, bool, error) {
	c.gets = append(c.gets, section)
	snap, ok := c.entries[section]
	return snap, ok, nil
}

func (c *recordingCache) SetSnapshot(_ context.Context, _ uuid.UUID, section, snapshot string, _ time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	c.entries[section] = snapshot
	return nil
}

func TestCanonicalSection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"menu", "menu"},
		{"menu-sets", "menu-sets"},
		{"orders", "orders"},
		{"inventory", "inventory"},
		{"staff", "staff"},
		{"pos", "pos"},
		{"dashboard", "dashboard"},
		{"", "general"},
		{"general", "general"},
		{"settings", "general"},
		{"Menu", "general"},
		{"menu:../../x", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalSection(tt.in))
		})
	}
}

func TestAssistantReply_UnknownSectionsShareOneCacheKey(t *testing.T) {
	store := &recordingCache{}
	src := &fakeSnapshotter{}
	a := NewAssistant(src, &fakeCompleter{reply: "ok"}, store)
	rid := uuid.New()

	for _, section := range []string{"", "settings", "random-1", "random-2"} {
		_, err := a.Reply(context.Background(), rid, Request{Message: "hi", Section: section})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"general", "general", "general", "general"}, store.gets)
	require.Len(t, store.entries, 1)
	assert.True(t, strings.HasPrefix(store.entries["general"], "DATABASE SNAPSHOT - OVERVIEW"))
}

func TestAssistantReply_FailedSnapshotNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	src := &fakeSnapshotter{
		rows:      map[database.SnapshotTable][]database.SnapshotRow{database.SnapshotInventory: {row("name", "Flour")}},
		failTable: database.SnapshotInventory,
	}
	llm := &fakeCompleter{reply: "ok"}
	a := NewAssistant(src, llm, cache.NewRedisCache(client))
	rid := uuid.New()

	_, err := a.Reply(context.Background(), rid, Request{Message: "stock?", Section: "inventory"})
	require.NoError(t, err)
	assert.Equal(t, "Database snapshot (inventory): error while loading inventory.", llm.messages[1].Content)
	assert.Empty(t, mr.Keys())

	src.failTable = ""
	_, err = a.Reply(context.Background(), rid, Request{Message: "stock?", Section: "inventory"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.reads)
	assert.Contains(t, llm.messages[1].Content, `name: "Flour"`)
	assert.Len(t, mr.Keys(), 1)
}

func TestAssistantReply_PartialDashboardNotCached(t *testing.T) {
	store := &recordingCache{}
	src := &fakeSnapshotter{failTable: database.SnapshotStaff}
	a := NewAssistant(src, &fakeCompleter{reply: "ok"}, store)

	_, err := a.Reply(context.Background(), uuid.New(), Request{Message: "hi", Section: "dashboard"})
	require.NoError(t, err)
	assert.Empty(t, store.entries)
}
