package usecase

import (
	"math"
	"testing"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical direction", a: []float32{1, 0}, b: []float32{2, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankSubCategoriesExactNameForcesFullScore(t *testing.T) {
	nodes := []domain.TaxonomyNode{
		{ID: 1, Name: "天文", Embedding: []float32{0.9, 0.1}},
		{ID: 2, Name: " 宇宙 ", Embedding: []float32{0, 1}},
	}

	got := rankSubCategories(nodes, "宇宙", []float32{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Node.ID != 2 || got[0].Similarity != 1.0 {
		t.Fatalf("expected trimmed exact-name node first at 1.0, got %+v", got[0])
	}
	if got[1].Node.ID != 1 || got[1].Similarity >= 1.0 {
		t.Fatalf("expected near-vector node second below 1.0, got %+v", got[1])
	}
}

func TestRankSubCategoriesSkipsMissingEmbedding(t *testing.T) {
	nodes := []domain.TaxonomyNode{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b", Embedding: []float32{1, 0}},
	}
	got := rankSubCategories(nodes, "none", []float32{1, 0}, 0)
	if got[0].Node.ID != 2 {
		t.Fatalf("expected embedded node first, got %+v", got[0])
	}
	if got[1].Similarity != 0 {
		t.Fatalf("node without embedding must score 0, got %v", got[1].Similarity)
	}
}

func TestRankLeavesShortCircuitsOnExactName(t *testing.T) {
	nodes := []domain.TaxonomyNode{
		{ID: 1, Name: "近い", Embedding: []float32{1, 0}},
		{ID: 2, Name: "目標", Embedding: []float32{0, 1}},
		{ID: 3, Name: "目標", Embedding: []float32{0.5, 0.5}},
	}

	got := rankLeaves(nodes, "目標", []float32{1, 0}, 5)
	if len(got) != 2 {
		t.Fatalf("expected only exact matches, got %d: %v", len(got), got)
	}
	for _, candidate := range got {
		if candidate.Node.Name != "目標" || candidate.Similarity != 1.0 {
			t.Fatalf("unexpected candidate %+v", candidate)
		}
	}
}

func TestRankLeavesFallsBackToCosine(t *testing.T) {
	nodes := []domain.TaxonomyNode{
		{ID: 1, Name: "a", Embedding: []float32{0, 1}},
		{ID: 2, Name: "b", Embedding: []float32{1, 0}},
		{ID: 3, Name: "c", Embedding: []float32{0.5, 0.5}},
	}

	got := rankLeaves(nodes, "絶対出ない名前", []float32{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Node.ID != 2 || got[1].Node.ID != 3 {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestTopCandidatesStableTies(t *testing.T) {
	candidates := []domain.Candidate{
		{Node: domain.TaxonomyNode{ID: 1}, Similarity: 0.5},
		{Node: domain.TaxonomyNode{ID: 2}, Similarity: 0.9},
		{Node: domain.TaxonomyNode{ID: 3}, Similarity: 0.5},
		{Node: domain.TaxonomyNode{ID: 4}, Similarity: 0.5},
	}

	got := topCandidates(candidates, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	wantOrder := []int64{2, 1, 3}
	for i, want := range wantOrder {
		if got[i].Node.ID != want {
			t.Fatalf("position %d: got id=%d, want %d (ties must keep input order)", i, got[i].Node.ID, want)
		}
	}
}

func TestTopCandidatesNoLimit(t *testing.T) {
	candidates := []domain.Candidate{
		{Node: domain.TaxonomyNode{ID: 1}, Similarity: 0.1},
		{Node: domain.TaxonomyNode{ID: 2}, Similarity: 0.2},
	}
	got := topCandidates(candidates, 0)
	if len(got) != 2 {
		t.Fatalf("limit 0 must keep everything, got %d", len(got))
	}
}

func TestDedupeCandidatesFirstWins(t *testing.T) {
	candidates := []domain.Candidate{
		{Node: domain.TaxonomyNode{ID: 1, Name: "a", Description: "d"}, Similarity: 0.9},
		{Node: domain.TaxonomyNode{ID: 1, Name: "a", Description: "d"}, Similarity: 0.4},
		{Node: domain.TaxonomyNode{ID: 1, Name: "a", Description: "other"}, Similarity: 0.3},
	}

	got := dedupeCandidates(candidates)
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct candidates, got %d: %v", len(got), got)
	}
	if got[0].Similarity != 0.9 {
		t.Fatalf("first occurrence must win, got %v", got[0].Similarity)
	}
	if got[1].Node.Description != "other" {
		t.Fatalf("differing description must survive dedupe, got %+v", got[1])
	}
}
