package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

// cosineSimilarity computes dot(a,b)/(|a|*|b|) in float64. Vectors of
// different length or zero norm score 0 instead of propagating NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankSubCategories scores every index node against the guessed sub-category.
// String equality with the guessed name is ground truth and forces 1.0,
// bypassing the vector distance entirely.
func rankSubCategories(nodes []domain.TaxonomyNode, guessName string, guessVector []float32, limit int) []domain.Candidate {
	guessName = strings.TrimSpace(guessName)

	candidates := make([]domain.Candidate, 0, len(nodes))
	for _, node := range nodes {
		similarity := 0.0
		if strings.TrimSpace(node.Name) == guessName {
			similarity = 1.0
		} else if len(node.Embedding) > 0 {
			similarity = cosineSimilarity(guessVector, node.Embedding)
		}
		candidates = append(candidates, domain.Candidate{Node: node, Similarity: similarity})
	}

	return topCandidates(candidates, limit)
}

// rankLeaves scores a branch's descendants against the reused input
// embedding. If any leaf name equals the predicted sub-category name the
// whole branch short-circuits: only exact matches are returned and
// embedding-based scoring is skipped.
func rankLeaves(nodes []domain.TaxonomyNode, predictedName string, inputVector []float32, limit int) []domain.Candidate {
	predictedName = strings.TrimSpace(predictedName)

	var exact []domain.Candidate
	for _, node := range nodes {
		if strings.TrimSpace(node.Name) == predictedName {
			exact = append(exact, domain.Candidate{Node: node, Similarity: 1.0})
		}
	}
	if len(exact) > 0 {
		return topCandidates(exact, limit)
	}

	candidates := make([]domain.Candidate, 0, len(nodes))
	for _, node := range nodes {
		similarity := 0.0
		if len(node.Embedding) > 0 {
			similarity = cosineSimilarity(inputVector, node.Embedding)
		}
		candidates = append(candidates, domain.Candidate{Node: node, Similarity: similarity})
	}

	return topCandidates(candidates, limit)
}

// topCandidates sorts descending by similarity and truncates. The sort is
// stable so ties keep their corpus order.
func topCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

type candidateKey struct {
	id          int64
	name        string
	description string
}

// dedupeCandidates drops repeated (id, name, description) entries,
// first occurrence wins.
func dedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[candidateKey]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidateKey{
			id:          candidate.Node.ID,
			name:        candidate.Node.Name,
			description: candidate.Node.Description,
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
