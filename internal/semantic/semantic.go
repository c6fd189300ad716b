// Package semantic implements the optional vector-backed search index. The
// store row is always authoritative; this index is a best-effort sidecar
// that message search consults only when enabled, and degrades gracefully
// (DEGRADED_SEARCH) when a write to it fails.
package semantic

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "messages"

// Embedder turns message content into a fixed-length vector. The default
// implementation is deterministic and local — no network call — matching
// the non-goal against external service dependencies.
type Embedder func(content string) []float32

// Index wraps a chromem-go in-process vector database keyed by message id.
type Index struct {
	db       *chromem.DB
	embed    Embedder
	collName string
}

func New(embed Embedder) *Index {
	if embed == nil {
		embed = HashEmbedder(256)
	}
	return &Index{db: chromem.NewDB(), embed: embed, collName: collectionName}
}

type Metadata struct {
	Channel    string
	Sender     string
	CreatedAt  time.Time
	IntentType string
	Confidence float64
}

func (idx *Index) Upsert(ctx context.Context, id int64, content string, meta Metadata) error {
	col, err := idx.db.GetOrCreateCollection(idx.collName, nil, identityEmbeddingFunc)
	if err != nil {
		return fmt.Errorf("semantic: get collection: %w", err)
	}
	doc := chromem.Document{
		ID:      strconv.FormatInt(id, 10),
		Content: content,
		Metadata: map[string]string{
			"channel":     meta.Channel,
			"sender":      meta.Sender,
			"created_at":  meta.CreatedAt.UTC().Format(time.RFC3339),
			"intent_type": meta.IntentType,
			"confidence":  strconv.FormatFloat(meta.Confidence, 'f', -1, 64),
		},
		Embedding: idx.embed(content),
	}
	return col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU())
}

type Hit struct {
	MessageID  int64
	Similarity float64
	Metadata   Metadata
}

// Search returns the topK nearest neighbors to query, restricted to the
// given channel set via chromem's metadata filter (channel is an exact
// string match per document, so multi-channel search runs one query per
// channel and merges).
func (idx *Index) Search(ctx context.Context, query string, channels []string, topK int) ([]Hit, error) {
	col, err := idx.db.GetOrCreateCollection(idx.collName, nil, identityEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("semantic: get collection: %w", err)
	}
	vector := idx.embed(query)

	// chromem rejects a result count above the collection size.
	n := topK
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	seen := map[string]bool{}
	var all []Hit
	for _, ch := range channels {
		results, err := col.QueryEmbedding(ctx, vector, n, map[string]string{"channel": ch}, nil)
		if err != nil {
			continue
		}
		for _, r := range results {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			id, convErr := strconv.ParseInt(r.ID, 10, 64)
			if convErr != nil {
				continue
			}
			all = append(all, Hit{
				MessageID:  id,
				Similarity: float64(r.Similarity),
				Metadata:   metadataFrom(r.Metadata),
			})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })
	if len(all) > topK {
		all = all[:topK]
	}
	return all, nil
}

func metadataFrom(m map[string]string) Metadata {
	var meta Metadata
	meta.Channel = m["channel"]
	meta.Sender = m["sender"]
	meta.IntentType = m["intent_type"]
	if t, err := time.Parse(time.RFC3339, m["created_at"]); err == nil {
		meta.CreatedAt = t
	}
	if c, err := strconv.ParseFloat(m["confidence"], 64); err == nil {
		meta.Confidence = c
	}
	return meta
}

func identityEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("semantic: embeddings are precomputed, embedding function should not be invoked")
}

// ─── Ranking profiles (§4.4) ─────────────────────────────────────────────────

type Profile struct {
	Name          string
	HalfLifeHours float64
	WSim          float64
	WConf         float64
	WDecay        float64
}

var (
	ProfileRecent = Profile{Name: "recent", HalfLifeHours: 24, WSim: 0.3, WConf: 0.1, WDecay: 0.6}
	ProfileQuality = Profile{Name: "quality", HalfLifeHours: 720, WSim: 0.4, WConf: 0.5, WDecay: 0.1}
	ProfileBalanced = Profile{Name: "balanced", HalfLifeHours: 168, WSim: 1.0 / 3, WConf: 1.0 / 3, WDecay: 1.0 / 3}
	ProfileSimilarity = Profile{Name: "similarity", HalfLifeHours: 168, WSim: 1.0, WConf: 0, WDecay: 0}
)

func ProfileByName(name string) Profile {
	switch name {
	case "recent":
		return ProfileRecent
	case "quality":
		return ProfileQuality
	case "similarity":
		return ProfileSimilarity
	default:
		return ProfileBalanced
	}
}

// Score blends similarity, confidence, and recency into the final [0,1]
// ranking score for one search hit.
func Score(profile Profile, similarity, confidence float64, age time.Duration) float64 {
	recency := recencyScore(age, profile.HalfLifeHours)
	wsum := profile.WSim + profile.WConf + profile.WDecay
	if wsum == 0 {
		return 0
	}
	return (profile.WSim*similarity + profile.WConf*confidence + profile.WDecay*recency) / wsum
}

func recencyScore(age time.Duration, halfLifeHours float64) float64 {
	if age < 0 {
		return 1
	}
	if halfLifeHours <= 0 {
		halfLifeHours = 168
	}
	ageHours := age.Hours()
	if ageHours/halfLifeHours >= 100 {
		return 0
	}
	return math.Exp(-math.Ln2 * ageHours / halfLifeHours)
}
