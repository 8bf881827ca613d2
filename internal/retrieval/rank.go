// Package retrieval finds the time window of a transcript that answers a
// free-text question.
package retrieval

import (
	"math"
	"sort"

	"github.com/xxxsen/framefinder/internal/model"
)

// DefaultTopK is how many ranked segments reach the refiner.
const DefaultTopK = 10

type ScoredSegment struct {
	Segment model.TranscriptSegment
	Score   float64
}

// Rank scores every segment against the query vector, highest first. Equal
// scores keep their input order.
func Rank(query []float32, segments []model.TranscriptSegment) []ScoredSegment {
	scored := make([]ScoredSegment, 0, len(segments))
	for _, seg := range segments {
		scored = append(scored, ScoredSegment{Segment: seg, Score: CosineSimilarity(query, seg.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func TopK(scored []ScoredSegment, k int) []ScoredSegment {
	if k <= 0 || k >= len(scored) {
		return scored
	}
	return scored[:k]
}

// CosineSimilarity returns 0 for empty, mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// byStart copies candidates into chronological order.
func byStart(candidates []ScoredSegment) []ScoredSegment {
	out := make([]ScoredSegment, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Segment.StartTime < out[j].Segment.StartTime
	})
	return out
}
