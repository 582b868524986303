// Package encode turns free text into fixed-dimension embedding vectors.
//
// The encoder is a feature-hashing bag-of-words model: every token (and token
// bigram) is hashed into one of D signed buckets and the result is
// L2-normalized. It is a pure function of (text, model version): identical
// input yields bit-identical output, which is what lets fingerprint-based
// invalidation double as embedding invalidation.
package encode

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const DefaultDim = 256

type Encoder struct {
	dim int
}

func New(dim int) *Encoder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Encoder{dim: dim}
}

func (e *Encoder) Dim() int { return e.dim }

// Version tags vectors with the hashing scheme and dimension. Vectors from
// different versions never mix in one index.
func (e *Encoder) Version() string {
	return fmt.Sprintf("hashv1-d%d", e.dim)
}

func (e *Encoder) Encode(text string) []float32 {
	vec := make([]float32, e.dim)
	toks := tokenize(text)
	if len(toks) == 0 {
		return vec
	}

	for i, tok := range toks {
		e.add(vec, tok, 1)
		if i+1 < len(toks) {
			// bigrams carry phrase signal at half weight
			e.add(vec, toks[i]+" "+toks[i+1], 0.5)
		}
	}

	var norm float64
	for _, f := range vec {
		norm += float64(f) * float64(f)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func (e *Encoder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	// one hash bit decides the sign, the classic hashing-trick variance fix
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
