// Package inprocess registers an embedding model computed locally, without network access.
//
// Texts are embedded with signed feature hashing over word unigrams and bigrams, then
// L2-normalized, so cosine similarity reflects token overlap. It is meant for development
// and tests, not for semantic quality.
//
// Vectors have the 384 dimensions of all-MiniLM-L6-v2, the usual local sentence
// transformer, so stores sized for it accept these vectors unchanged. They do not share
// its embedding space. Running MiniLM itself needs the ONNX runtime and a cgo tokenizer,
// which this package avoids. Register a provider backed by that model for semantic search.
package inprocess

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"modelwire/internal/core"
	"modelwire/internal/providers"
)

const (
	// Type is the provider identifier used in modelwire.embedding-model.provider.
	Type = "in-process"

	// ModelID names the only model this provider computes.
	ModelID = "hashing-384"

	// Dimensions is the vector length.
	Dimensions = 384
)

// Registration provides catalog registration for the in-process embedding model.
var Registration = providers.Registration{
	Type:      Type,
	InProcess: true,
	Embedding: func(providers.ProviderOptions) (core.EmbeddingModelClient, error) {
		return NewEmbedder(Dimensions), nil
	},
}

// Embedder is a stateless feature-hashing embedding model.
type Embedder struct {
	dims int
}

// NewEmbedder creates an embedder producing vectors of dims elements.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = Dimensions
	}
	return &Embedder{dims: dims}
}

// Embed returns one unit vector per text. Empty texts yield zero vectors.
func (e *Embedder) Embed(ctx context.Context, texts []string) (*core.EmbeddingResponse, error) {
	resp := &core.EmbeddingResponse{
		Model:   ModelID,
		Vectors: make([][]float32, 0, len(texts)),
	}
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := tokenize(text)
		resp.Vectors = append(resp.Vectors, e.vector(tokens))
		resp.Usage.PromptTokens += len(tokens)
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens
	return resp, nil
}

func (e *Embedder) vector(tokens []string) []float32 {
	acc := make([]float64, e.dims)
	add := func(feature string, weight float64) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dims))
		if h>>63 == 1 {
			weight = -weight
		}
		acc[idx] += weight
	}
	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
