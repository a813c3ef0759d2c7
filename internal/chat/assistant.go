package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotTTL is how long a rendered section snapshot is reused.
const SnapshotTTL = 30 * time.Second

// FallbackReply is returned when the model produced no text.
const FallbackReply = "I could not generate a response."

const systemPrompt = `You are an AI assistant for a restaurant POS and management system.

The application has these main areas: dashboard, menu, menu sets, orders, staff, inventory, POS and general administration.

You MUST follow these rules:
- Use ONLY the database snapshot and the user question to answer.
- DO NOT invent menu items, menu sets, orders or staff that are not in the snapshot.
- If the snapshot does not contain the requested information, say clearly what is missing and what the user can do in the app (e.g., "you can add new menu items on the Menu Items page").
- Be concise, practical and business-oriented.
- When talking about money, just echo the values you see in the snapshot (do not recalculate historical revenue unless the snapshot includes it).
`

// SnapshotCache stores rendered snapshots per restaurant and section.
// Satisfied by *cache.RedisCache.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, restaurantID uuid.UUID, section string) (string, bool, error)
	SetSnapshot(ctx context.Context, restaurantID uuid.UUID, section, snapshot string, ttl time.Duration) error
}

// Request is a staff question from a UI section.
type Request struct {
	Message string
	Section string
	Context string
}

// Assistant grounds each question on a snapshot of the asking restaurant.
type Assistant struct {
	snap  Snapshotter
	llm   Completer
	cache SnapshotCache
}

// NewAssistant creates an Assistant. cache may be nil.
func NewAssistant(snap Snapshotter, llm Completer, cache SnapshotCache) *Assistant {
	return &Assistant{snap: snap, llm: llm, cache: cache}
}

// Reply asks the model and returns its trimmed answer.
func (a *Assistant) Reply(ctx context.Context, restaurantID uuid.UUID, req Request) (string, error) {
	section := CanonicalSection(req.Section)

	userContent := req.Message
	if strings.TrimSpace(req.Context) != "" {
		userContent += "\n\nAdditional UI context: " + req.Context
	}

	text, err := a.llm.Complete(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleSystem, Content: a.snapshot(ctx, restaurantID, section)},
		{Role: RoleUser, Content: userContent},
	})
	if err != nil {
		return "", err
	}

	if text = strings.TrimSpace(text); text == "" {
		return FallbackReply, nil
	}
	return text, nil
}

func (a *Assistant) snapshot(ctx context.Context, restaurantID uuid.UUID, section string) string {
	if a.cache != nil {
		cached, ok, err := a.cache.GetSnapshot(ctx, restaurantID, section)
		if err != nil {
			log.Printf("WARN: chat snapshot cache get: %v", err)
		} else if ok {
			return cached
		}
	}

	snap, complete := buildSection(ctx, a.snap, restaurantID, section)

	if a.cache != nil && complete {
		if err := a.cache.SetSnapshot(ctx, restaurantID, section, snap, SnapshotTTL); err != nil {
			log.Printf("WARN: chat snapshot cache set: %v", err)
		}
	}
	return snap
}
