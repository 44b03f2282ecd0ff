// Package embedding implements the deterministic text vectorizers shared by search
// and feature extraction.
//
// TokenEmbedding is the canonical method: it depends only on the MD5 digest of the
// token's UTF-8 bytes, so vectors are stable across processes and languages and can be
// baked into persisted models. CharSumEmbedding is a cheap legacy alternative.
package embedding

import (
	"crypto/md5" //nolint:gosec // not used for security, only as a stable spreading function
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Default dimensions.
const (
	DocumentDim = 12
	FieldDim    = 5
)

const byteCenter = 127.5

// TokenEmbedding hashes token with MD5, centers the 16 digest bytes around zero,
// truncates or tiles them to dim and L2-normalizes the result.
func TokenEmbedding(token string, dim int) []float32 {
	if dim <= 0 {
		return []float32{}
	}
	sum := md5.Sum([]byte(token)) //nolint:gosec // see import
	v := make([]float64, dim)
	for i := range v {
		v[i] = float64(sum[i%len(sum)]) - byteCenter
	}
	return normalize(v)
}

// TextEmbedding averages the token embeddings of the whitespace-separated words in text.
// Empty text yields the zero vector.
func TextEmbedding(text string, dim int) []float32 {
	return textEmbedding(text, dim, TokenEmbedding)
}

func textEmbedding(text string, dim int, token func(string, int) []float32) []float32 {
	if dim <= 0 {
		return []float32{}
	}
	words := strings.Fields(text)
	acc := make([]float64, dim)
	if len(words) == 0 {
		return make([]float32, dim)
	}
	for _, w := range words {
		for i, x := range token(w, dim) {
			acc[i] += float64(x)
		}
	}
	// The mean and the sum share a direction, normalization makes them equal.
	return normalize(acc)
}

// CharSumEmbedding accumulates code points into dim buckets by position modulo dim.
func CharSumEmbedding(text string, dim int) []float32 {
	if dim <= 0 {
		return []float32{}
	}
	v := make([]float64, dim)
	i := 0
	for _, r := range text {
		v[i%dim] += float64(r)
		i++
	}
	return normalize(v)
}

// normalize returns v scaled to unit L2 norm. The zero vector stays zero.
func normalize(v []float64) []float32 {
	out := make([]float32, len(v))
	n := floats.Norm(v, 2)
	if n == 0 {
		return out
	}
	floats.Scale(1/n, v)
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Normalize returns a unit-length copy of v (zero stays zero).
func Normalize(v []float32) []float32 {
	return normalize(ToFloat64(v))
}

// ToFloat64 widens v.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	return floats.Norm(ToFloat64(v), 2)
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	fa, fb := ToFloat64(a), ToFloat64(b)
	na, nb := floats.Norm(fa, 2), floats.Norm(fb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(fa, fb) / (na * nb)
}
