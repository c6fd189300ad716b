package semantic

import (
	"math"
	"strings"
)

// HashEmbedder returns a deterministic, local, feature-hashing embedder:
// each token is hashed into one of dims buckets and accumulated, then the
// vector is L2-normalized so cosine similarity behaves sensibly. It needs
// no network call and no model weights, trading embedding quality for being
// entirely self-contained — swap in a real embedding provider by passing a
// different Embedder to semantic.New.
func HashEmbedder(dims int) Embedder {
	if dims <= 0 {
		dims = 256
	}
	return func(content string) []float32 {
		vec := make([]float32, dims)
		for _, tok := range strings.Fields(strings.ToLower(content)) {
			h := fnv32a(tok)
			vec[int(h)%dims] += 1
		}
		normalize(vec)
		return vec
	}
}

func fnv32a(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}
