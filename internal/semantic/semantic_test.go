package semantic

import (
	"context"
	"testing"
	"time"
)

func TestUpsertAndSearchFindsRelevantMessage(t *testing.T) {
	idx := New(HashEmbedder(64))
	ctx := context.Background()

	if err := idx.Upsert(ctx, 1, "deploying the release pipeline now", Metadata{Channel: "global:general", Sender: "alice", CreatedAt: time.Now(), Confidence: 0.8}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, 2, "lunch plans for the team offsite", Metadata{Channel: "global:general", Sender: "bob", CreatedAt: time.Now(), Confidence: 0.5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := idx.Search(ctx, "release pipeline deploy", []string{"global:general"}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected at least one hit")
	}
	if hits[0].MessageID != 1 {
		t.Fatalf("expected message 1 to rank first, got %+v", hits)
	}
}

func TestRecencyScoreBounds(t *testing.T) {
	if got := recencyScore(-time.Hour, 24); got != 1 {
		t.Fatalf("future timestamp should clamp to 1, got %v", got)
	}
	if got := recencyScore(10000*time.Hour, 24); got != 0 {
		t.Fatalf("very old message should clamp to 0, got %v", got)
	}
	half := recencyScore(24*time.Hour, 24)
	if half < 0.49 || half > 0.51 {
		t.Fatalf("expected ~0.5 at one half-life, got %v", half)
	}
}

func TestScoreBlendsComponents(t *testing.T) {
	s := Score(ProfileSimilarity, 0.9, 0.1, time.Hour)
	if s != 0.9 {
		t.Fatalf("similarity-only profile should pass through similarity, got %v", s)
	}
}

func TestProfileByName(t *testing.T) {
	if ProfileByName("recent").Name != "recent" {
		t.Fatalf("expected recent profile")
	}
	if ProfileByName("unknown").Name != "balanced" {
		t.Fatalf("expected fallback to balanced")
	}
}
